package auth

import (
	"fmt"
	"strings"

	"github.com/Amund-Fremming/tero.platform/internal/config"
)

// IntegrationName is one of the trusted peer services.
type IntegrationName string

const (
	IntegrationAuth0   IntegrationName = "auth0"
	IntegrationSession IntegrationName = "session"
)

const clientSuffix = "@clients"

// ParseIntegrationName validates a configured integration name.
func ParseIntegrationName(s string) (IntegrationName, error) {
	switch n := IntegrationName(strings.ToLower(strings.TrimSpace(s))); n {
	case IntegrationAuth0, IntegrationSession:
		return n, nil
	}
	return "", fmt.Errorf("unknown integration %q", s)
}

// IntegrationRegistry maps machine-to-machine client ids to integrations.
// Built once at startup and never written afterwards.
type IntegrationRegistry struct {
	bySubject map[string]IntegrationName
}

// NewIntegrationRegistry builds the registry from configuration.
func NewIntegrationRegistry(cfgs []config.IntegrationConfig) (*IntegrationRegistry, error) {
	reg := &IntegrationRegistry{bySubject: make(map[string]IntegrationName, len(cfgs))}
	for _, c := range cfgs {
		name, err := ParseIntegrationName(c.Name)
		if err != nil {
			return nil, err
		}
		subject := strings.TrimSuffix(strings.TrimSpace(c.Subject), clientSuffix)
		if subject == "" {
			return nil, fmt.Errorf("integration %s: subject is required", name)
		}
		if existing, ok := reg.bySubject[subject]; ok && existing != name {
			return nil, fmt.Errorf("integration subject %q mapped to both %s and %s", subject, existing, name)
		}
		reg.bySubject[subject] = name
	}
	return reg, nil
}

// FromSubject resolves a token subject of the form "<client id>@clients".
func (r *IntegrationRegistry) FromSubject(sub string) (IntegrationName, bool) {
	id, ok := strings.CutSuffix(sub, clientSuffix)
	if !ok || id == "" {
		return "", false
	}
	name, ok := r.bySubject[id]
	return name, ok
}

// Len returns the number of configured integrations.
func (r *IntegrationRegistry) Len() int { return len(r.bySubject) }
