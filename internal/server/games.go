package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
	"github.com/Amund-Fremming/tero.platform/internal/services/pagecache"
)

type gamePageRequest struct {
	Page     int            `json:"page" validate:"min=0,max=65535"`
	Kind     games.Kind     `json:"kind" validate:"required"`
	Category games.Category `json:"category"`
}

// gamePage serves a listing page through the page cache.
func (h *handlers) gamePage(w http.ResponseWriter, r *http.Request) {
	var req gamePageRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}

	key := pagecache.Key{Page: req.Page, Kind: req.Kind, Category: req.Category}
	page, err := h.Cache.GetOr(r.Context(), key, func(ctx context.Context) (GamePage, error) {
		return h.Games.ListGames(ctx, repository.GameQuery{
			Kind:     req.Kind,
			Category: req.Category,
			PageNum:  req.Page,
		}, h.PageSize)
	})
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "games not found"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) deleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuidParam(r, "game_id")
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	kind, category, err := h.Games.DeleteGame(r.Context(), gameID)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	h.invalidateListing(r, kind, category)
	w.WriteHeader(http.StatusOK)
}

// invalidateListing drops cached pages for the listing a mutation touched.
// It runs off the request path.
func (h *handlers) invalidateListing(r *http.Request, kind games.Kind, category games.Category) {
	subject, _ := auth.SubjectFromContext(r.Context())
	h.Jobs.Submit("invalidate_cache", func(ctx context.Context) error {
		n := h.Cache.Invalidate(ctx, kind, category)
		h.log.WithFields(logrus.Fields{
			"kind":     kind,
			"category": category,
			"subject":  subject.String(),
			"evicted":  n,
		}).Debug("game listing invalidated")
		return nil
	})
}

// freeKey releases a game key once the session service is done with it.
func (h *handlers) freeKey(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, apierror.BadRequest("key word in invalid format"))
		return
	}
	h.Vault.RemoveKey(r.Context(), key)
	h.log.WithField("key", key.String()).Info("game key released")
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) saveGame(w http.ResponseWriter, r *http.Request) {
	userID, err := registeredID(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	gameID, err := uuidParam(r, "game_id")
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if err := h.Games.SaveGame(r.Context(), userID, gameID); err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handlers) unsaveGame(w http.ResponseWriter, r *http.Request) {
	userID, err := registeredID(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	gameID, err := uuidParam(r, "game_id")
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if err := h.Games.UnsaveGame(r.Context(), userID, gameID); err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "saved game not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// savedGames lists the caller's bookmarks, optionally narrowed by ?kind=.
func (h *handlers) savedGames(w http.ResponseWriter, r *http.Request) {
	userID, err := registeredID(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	pageNum, err := pageNumParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	q := repository.GameQuery{PageNum: pageNum}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		if q.Kind, err = games.ParseKind(raw); err != nil {
			apierror.Write(w, r, h.log, apierror.BadRequest(err.Error()))
			return
		}
	}

	page, err := h.Games.ListSavedGames(r.Context(), userID, q, h.PageSize)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "saved games not found"))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apierror.BadRequest("invalid " + strings.ReplaceAll(name, "_", " "))
	}
	return id, nil
}

func kindParam(r *http.Request) (games.Kind, error) {
	kind, err := games.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", apierror.BadRequest(err.Error())
	}
	return kind, nil
}

func keyParam(r *http.Request) (keyvault.Key, error) {
	return keyvault.ParseKey(chi.URLParam(r, "key"))
}

// userSubject returns the guest or registered id acting on the request.
func userSubject(r *http.Request) (auth.Subject, uuid.UUID, error) {
	subject, _ := auth.SubjectFromContext(r.Context())
	id, ok := subject.UserID()
	if !ok {
		return subject, uuid.Nil, apierror.AccessDenied()
	}
	return subject, id, nil
}

// dispatchAudit records a failed detached job against subject.
func (h *handlers) dispatchAudit(subject auth.Subject, action models.LogAction, function, description string, meta map[string]any) {
	h.Audit.Entry().
		For(subject).
		Action(action).
		Severity(models.SeverityWarning).
		Function(function).
		Description(description).
		Metadata(meta).
		Dispatch()
}
