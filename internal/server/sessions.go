package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
)

const gameKeyNotFound = "Game with game key does not exist"

type createGameRequest struct {
	Name        string         `json:"name" validate:"gamename"`
	Description string         `json:"description" validate:"max=500"`
	Category    games.Category `json:"category"`
}

type sessionResponse struct {
	Key        string `json:"key"`
	HubAddress string `json:"hub_address"`
}

type joinResponse struct {
	GameKey    string     `json:"game_key"`
	HubAddress string     `json:"hub_address"`
	GameType   games.Kind `json:"game_type"`
}

// persistEnvelope is posted by the session service when a game ends. Key is
// released after the rounds are stored.
type persistEnvelope struct {
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// createSession stores an unsynced game, issues a key and opens the session
// on the session service.
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	subject, hostID, err := userSubject(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if req.Category.IsZero() {
		req.Category = games.Casual
	}

	base := &models.GameBase{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       req.Name,
		Kind:       kind,
		Category:   req.Category,
		LastPlayed: h.Now().UTC(),
	}
	value, err := games.NewSession(kind, hostID, base.ID)
	if err != nil {
		apierror.Write(w, r, h.log, apierror.Internal("build session", err))
		return
	}
	if err := h.Games.CreateGameBase(r.Context(), base); err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	h.log.WithField("game_id", base.ID).WithField("subject", subject.String()).Info("persisted interactive game base")
	h.invalidateListing(r, kind, base.Category)

	key, err := h.openSession(r.Context(), kind, value)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Key: key.String(), HubAddress: kind.HubAddress(h.GSDomain)})
}

// initiateSession replays a stored roulette or duel game in a new session.
func (h *handlers) initiateSession(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	gameID, err := uuidParam(r, "game_id")
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	subject, hostID, err := userSubject(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if !kind.SupportsInitiate() {
		apierror.Write(w, r, h.log, apierror.BadRequest("This game does not have session support"))
		return
	}

	rounds, err := h.Games.GetRounds(r.Context(), kind, gameID)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	value, err := games.FromRounds(kind, hostID, gameID, rounds, games.StateInitialized)
	if err != nil {
		apierror.Write(w, r, h.log, apierror.Internal("build session", err))
		return
	}
	key, err := h.openSession(r.Context(), kind, value)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}

	h.countPlay(subject, kind, gameID, "initiate_interactive_game")
	writeJSON(w, http.StatusOK, sessionResponse{Key: key.String(), HubAddress: kind.HubAddress(h.GSDomain)})
}

// openSession issues a key and hands the session to the session service. The
// key is released again if the service refuses it.
func (h *handlers) openSession(ctx context.Context, kind games.Kind, value json.RawMessage) (keyvault.Key, error) {
	key, err := h.Vault.CreateKey(ctx, kind)
	if err != nil {
		return keyvault.Key{}, err
	}
	if err := h.Sessions.InitiateSession(ctx, kind, key.String(), value); err != nil {
		h.Vault.RemoveKey(ctx, key)
		return keyvault.Key{}, err
	}
	h.log.WithField("key", key.String()).WithField("kind", kind).Debug("session initiated")
	return key, nil
}

// countPlay bumps the play counter off the request path.
func (h *handlers) countPlay(subject auth.Subject, kind games.Kind, gameID uuid.UUID, function string) {
	now := h.Now()
	h.Jobs.Submit("increment_times_played", func(ctx context.Context) error {
		if err := h.Games.IncrementTimesPlayed(ctx, gameID, now); err != nil {
			h.dispatchAudit(subject, models.ActionUpdate, function,
				"failed to increment game play counter",
				map[string]any{"error": err.Error(), "game_id": gameID.String(), "game_type": kind})
			return err
		}
		return nil
	})
}

func (h *handlers) joinSession(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, apierror.NotFound(gameKeyNotFound))
		return
	}
	kind, ok := h.Vault.KeyActive(key)
	if !ok {
		apierror.Write(w, r, h.log, apierror.NotFound(gameKeyNotFound))
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		GameKey:    key.String(),
		HubAddress: kind.HubAddress(h.GSDomain),
		GameType:   kind,
	})
}

// persistSession stores the rounds of a finished interactive game.
func (h *handlers) persistSession(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	var env persistEnvelope
	if err := decodeJSON(r, &env); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	var (
		key    keyvault.Key
		hasKey = env.Key != ""
	)
	if hasKey {
		if key, err = keyvault.ParseKey(env.Key); err != nil {
			apierror.Write(w, r, h.log, apierror.BadRequest("key word in invalid format"))
			return
		}
	}

	gameID, err := h.storeRounds(r.Context(), kind, env.Payload)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	if hasKey {
		h.Vault.RemoveKey(r.Context(), key)
	}
	h.invalidateListing(r, kind, "")
	h.log.WithField("game_id", gameID).WithField("kind", kind).Info("persisted interactive game")
	w.WriteHeader(http.StatusCreated)
}

// storeRounds validates a finished session payload and persists its rounds.
func (h *handlers) storeRounds(ctx context.Context, kind games.Kind, payload json.RawMessage) (uuid.UUID, error) {
	if h.Validator != nil {
		if err := h.Validator.Validate(kind, payload); err != nil {
			return uuid.Nil, err
		}
	}
	game, err := games.DecodePersisted(kind, payload)
	if err != nil {
		return uuid.Nil, apierror.BadRequest("invalid session payload")
	}
	if err := h.Games.PersistRounds(ctx, kind, game.GameID, game.Rounds, h.Now()); err != nil {
		return uuid.Nil, err
	}
	return game.GameID, nil
}

// initiateStatic returns a stored quiz as a fresh session. Static games are
// played on one device and never reach the session service.
func (h *handlers) initiateStatic(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	gameID, err := uuidParam(r, "game_id")
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	subject, hostID, err := userSubject(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if !kind.SupportsStandalone() {
		apierror.Write(w, r, h.log, apierror.BadRequest("This game does not have static support"))
		return
	}

	rounds, err := h.Games.GetRounds(r.Context(), kind, gameID)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	session, err := games.FromRounds(kind, hostID, gameID, rounds, games.StateInitialized)
	if err != nil {
		apierror.Write(w, r, h.log, apierror.Internal("build session", err))
		return
	}

	h.countPlay(subject, kind, gameID, "initiate_standalone_game")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(session)
}

// persistStatic stores a quiz created and played on a single device.
func (h *handlers) persistStatic(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if _, _, err := userSubject(r); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}
	if !kind.SupportsStandalone() {
		apierror.Write(w, r, h.log, apierror.BadRequest("This game does not have static persist support"))
		return
	}
	var env persistEnvelope
	if err := decodeJSON(r, &env); err != nil {
		apierror.Write(w, r, h.log, err)
		return
	}

	gameID, err := h.storeRounds(r.Context(), kind, env.Payload)
	if err != nil {
		apierror.Write(w, r, h.log, toServerError(err, "game not found"))
		return
	}
	h.invalidateListing(r, kind, "")
	h.log.WithField("game_id", gameID).Info("persisted standalone game")
	w.WriteHeader(http.StatusCreated)
}
