package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/popup"
)

// Roles reported by GET /users/me.
const (
	RoleAdmin    = "Admin"
	RoleBaseUser = "BaseUser"
)

// ensurePseudoUser returns the caller's pseudo id when it already exists,
// otherwise mints a fresh one. An unknown query id is never adopted.
func (h *handlers) ensurePseudoUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if raw := r.URL.Query().Get("pseudo_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apierror.Write(w, r, h.log, apierror.BadRequest("invalid pseudo_id"))
			return
		}
		exists, err := h.Users.PseudoUserExists(ctx, id)
		if err != nil {
			apierror.Write(w, r, h.log, toServerError(err, "pseudo user not found"))
			return
		}
		if exists {
			writeJSON(w, http.StatusOK, id)
			return
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		apierror.Write(w, r, h.log, apierror.Internal("generate pseudo id", err))
		return
	}
	now := h.Now()
	if err := h.Users.CreatePseudoUser(ctx, id, now); err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "pseudo user not found"))
		return
	}

	h.Jobs.Submit("touch_pseudo_user", func(ctx context.Context) error {
		if err := h.Users.TouchPseudoUser(ctx, id, now); err != nil {
			h.Audit.Entry().
				Action(models.ActionUpdate).
				Severity(models.SeverityWarning).
				Function("ensure_pseudo_user").
				Description("failed to update pseudo user last activity").
				Metadata(map[string]any{"pseudo_id": id.String(), "error": err.Error()}).
				Dispatch()
			return err
		}
		return nil
	})
	writeJSON(w, http.StatusCreated, id)
}

func (h *handlers) getPopup(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Popups.Get())
}

func (h *handlers) updatePopup(w http.ResponseWriter, r *http.Request) {
	var p popup.Popup
	if err := decodeJSON(r, &p); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Popups.Update(p))
}

// auth0User is the identity-provider post-registration payload.
type auth0User struct {
	UserID        string     `json:"user_id" validate:"required"`
	Email         string     `json:"email" validate:"omitempty,email"`
	EmailVerified bool       `json:"email_verified"`
	Username      string     `json:"username"`
	GivenName     string     `json:"given_name"`
	FamilyName    string     `json:"family_name"`
	BirthDate     *time.Time `json:"birthdate"`
}

func (u auth0User) username() string {
	if u.Username != "" {
		return u.Username
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// auth0Webhook registers a base user that takes over the pseudo user's id.
func (h *handlers) auth0Webhook(w http.ResponseWriter, r *http.Request) {
	pseudoID, err := uuid.Parse(chi.URLParam(r, "pseudo_id"))
	if err != nil {
		apierror.Write(w, r, h.log, apierror.BadRequest("invalid pseudo id"))
		return
	}
	var body auth0User
	if err := decodeJSON(r, &body); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}

	now := h.Now().UTC()
	auth0ID := body.UserID
	user := &models.BaseUser{
		ID:            pseudoID,
		Username:      body.username(),
		Auth0ID:       &auth0ID,
		Gender:        models.GenderUnknown,
		Email:         body.Email,
		EmailVerified: body.EmailVerified,
		FamilyName:    body.FamilyName,
		GivenName:     body.GivenName,
		BirthDate:     body.BirthDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Users.RegisterUser(r.Context(), user); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			h.Audit.Entry().
				Subject(models.SubjectIntegration, string(auth.IntegrationAuth0)).
				Action(models.ActionCreate).
				Severity(models.SeverityCritical).
				Function("auth0_webhook").
				Descriptionf("failed to register user %s: %v", auth0ID, err).
				Dispatch()
		}
		apierror.Write(w, r, h.log, toServerError(err, "user not found"))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type meResponse struct {
	Role string           `json:"role"`
	User *models.BaseUser `json:"user"`
}

// registeredID returns the caller's base-user id or AccessDenied.
func registeredID(r *http.Request) (uuid.UUID, error) {
	subject, _ := auth.SubjectFromContext(r.Context())
	if subject.Kind != auth.SubjectRegistered {
		return uuid.Nil, apierror.AccessDenied()
	}
	return subject.ID, nil
}

func (h *handlers) getMe(w http.ResponseWriter, r *http.Request) {
	id, err := registeredID(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	user, err := h.Users.GetBaseUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.Audit.Entry().
				Subject(models.SubjectRegisteredUser, id.String()).
				Action(models.ActionSync).
				Severity(models.SeverityCritical).
				Function("get_me").
				Description("authenticated user has no base user row").
				Dispatch()
		}
		apierror.Write(w, r, h.log, toServerError(err, "user not found"))
		return
	}

	role := RoleBaseUser
	if auth.ClaimsFromContext(r.Context()).HasAll(auth.ReadAdmin, auth.WriteAdmin) {
		role = RoleAdmin
	}
	writeJSON(w, http.StatusOK, meResponse{Role: role, User: user})
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	pageNum, err := pageNumParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	page, err := h.Users.ListBaseUsers(r.Context(), pageNum, h.PageSize)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "users not found"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// patchUser lets users edit themselves; WriteAdmin may edit anyone.
func (h *handlers) patchUser(w http.ResponseWriter, r *http.Request) {
	callerID, err := registeredID(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		apierror.Write(w, r, h.log, apierror.BadRequest("invalid user id"))
		return
	}
	self := callerID == targetID
	if !self {
		claims := auth.ClaimsFromContext(r.Context())
		if missing := claims.MissingPermission(auth.WriteAdmin); missing != nil {
			apierror.Write(w, r, h.log, apierror.Permission(missing.Names()))
			return
		}
	}

	var patch models.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if patch.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	user, err := h.Users.PatchBaseUser(r.Context(), targetID, patch, h.Now())
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "user not found"))
		return
	}
	if !self {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) activityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Users.ActivityStats(r.Context(), h.Now())
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "stats not found"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// pageNumParam reads ?page_num=, defaulting to the first page.
func pageNumParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page_num")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > math.MaxUint16 {
		return 0, apierror.BadRequest("page_num must be an integer between 0 and 65535")
	}
	return n, nil
}
