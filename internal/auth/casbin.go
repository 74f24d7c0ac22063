package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// defaultPolicy lists which subject kinds may call which actions.
// Columns: subject kind, action pattern (keyMatch), bexpr condition.
var defaultPolicy = [][]string{
	{"guest", GamesPage, noCondition},
	{"guest", SessionCreate, noCondition},
	{"guest", SessionInitiate, noCondition},
	{"guest", SessionJoin, noCondition},
	{"guest", "static:*", noCondition},

	{"registered", "games:*", noCondition},
	{"registered", SessionCreate, noCondition},
	{"registered", SessionInitiate, noCondition},
	{"registered", SessionJoin, noCondition},
	{"registered", "static:*", noCondition},
	{"registered", "users:*", noCondition},
	{"registered", PopupUpdate, noCondition},

	// keys and session results belong to the game-session service
	{"integration", SessionFreeKey, `integration == "session"`},
	{"integration", SessionPersist, `integration == "session"`},
	{"integration", WebhookAuth0, `integration == "auth0"`},
}

// AccessPolicy decides whether a subject kind may perform an action.
type AccessPolicy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAccessPolicy builds the enforcer from the embedded model and the static policy.
func NewAccessPolicy() (*AccessPolicy, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	enforcer.AddFunction("bexprMatch", BexprMatchFunction())

	if _, err := enforcer.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("load access policy: %w", err)
	}
	return &AccessPolicy{enforcer: enforcer}, nil
}

// Allowed reports whether subject may perform action.
func (p *AccessPolicy) Allowed(subject Subject, action string) (bool, error) {
	if subject.IsZero() {
		return false, nil
	}
	ok, err := p.enforcer.Enforce(subject.Kind.String(), action, subject.Attributes())
	if err != nil {
		return false, fmt.Errorf("enforce %s on %s: %w", action, subject, err)
	}
	return ok, nil
}
