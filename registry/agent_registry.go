package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/communication"
)

// AgentInfo describes a registered agent: its on-chain address, a free-form
// role label and the set of permission strings it holds.
type AgentInfo struct {
	Address     string   `json:"address"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// TokenInfo describes a token known to the registry.
type TokenInfo struct {
	Address     string `json:"address"`
	TotalSupply uint64 `json:"totalSupply"`
	Decimals    uint8  `json:"decimals"`
}

// AgentEventHandler observes agent lifecycle events. It runs synchronously
// on the registering caller's goroutine and must not call back into
// mutating registry operations.
type AgentEventHandler func(agentName, action string)

// ActionRegistered is the action reported for a successful registration.
const ActionRegistered = "registered"

// Registry is the single source of truth for which agents exist, what they
// are allowed to do, and which tokens the chain knows about. It is loaded
// once from a JSON configuration document and may be extended at runtime
// with RegisterAgent.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]AgentInfo
	tokens  map[string]TokenInfo
	handler AgentEventHandler

	log zerolog.Logger
}

// New loads a registry from the configuration document at path. The load is
// one-shot: it either succeeds completely or fails with ErrConfig /
// ErrConfigParse and no registry is returned.
func New(path string, log zerolog.Logger) (*Registry, error) {
	agents, tokens, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("agents", len(agents)).
		Int("tokens", len(tokens)).
		Str("config", path).
		Msg("agent registry loaded")

	return &Registry{
		agents: agents,
		tokens: tokens,
		log:    log,
	}, nil
}

// RegisterAgent inserts a new agent under name. It returns false without
// mutating anything if the name is already taken or the address is not
// well-formed. On success the agent event handler fires exactly once, after
// the insertion is visible.
func (r *Registry) RegisterAgent(name string, info AgentInfo) bool {
	if !IsValidAddress(info.Address) {
		r.log.Warn().Str("agent", name).Str("address", info.Address).Msg("rejected agent with invalid address")
		return false
	}

	r.mu.Lock()
	if _, exists := r.agents[name]; exists {
		r.mu.Unlock()
		return false
	}
	info.Permissions = dedupe(info.Permissions)
	r.agents[name] = info
	handler := r.handler
	r.mu.Unlock()

	r.log.Info().Str("agent", name).Str("address", info.Address).Str("role", info.Role).Msg("agent registered")

	if handler != nil {
		handler(name, ActionRegistered)
	}
	communication.PublishAgentEvent(name, ActionRegistered)

	return true
}

// HasPermission reports whether some registered agent has exactly this
// address and holds the given permission. Lookup is by address; if several
// names share an address the first match wins, which is a configuration
// mistake callers should avoid.
func (r *Registry) HasPermission(address, permission string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, info := range r.agents {
		if info.Address != address {
			continue
		}
		for _, p := range info.Permissions {
			if p == permission {
				return true
			}
		}
		return false
	}
	return false
}

// GetAgentAddress returns the address registered under name, or "" if the
// name is unknown.
func (r *Registry) GetAgentAddress(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.agents[name].Address
}

// GetAgentPermissions returns a copy of the permission set registered under
// name, or nil if the name is unknown.
func (r *Registry) GetAgentPermissions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.agents[name]
	if !exists {
		return nil
	}
	perms := make([]string, len(info.Permissions))
	copy(perms, info.Permissions)
	return perms
}

// GetAgent returns the full agent record for name.
func (r *Registry) GetAgent(name string) (AgentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.agents[name]
	return info, exists
}

// ListAgents returns a copy of all registered agents keyed by name.
func (r *Registry) ListAgents() map[string]AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make(map[string]AgentInfo, len(r.agents))
	for name, info := range r.agents {
		agents[name] = info
	}
	return agents
}

// GetTokenAddress returns the address of the token registered under symbol,
// or "" if the symbol is unknown.
func (r *Registry) GetTokenAddress(symbol string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tokens[symbol].Address
}

// GetTokenInfo returns the token record for symbol.
func (r *Registry) GetTokenInfo(symbol string) (TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.tokens[symbol]
	return info, exists
}

// ValidateAddress reports whether address is well-formed.
func (r *Registry) ValidateAddress(address string) bool {
	return IsValidAddress(address)
}

// IsRegisteredAgent reports whether some registered agent has this address.
func (r *Registry) IsRegisteredAgent(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, info := range r.agents {
		if info.Address == address {
			return true
		}
	}
	return false
}

// SetAgentEventHandler installs the agent event handler, replacing any
// previous one. Pass nil to remove it. Events are also published to the
// message broker, so most observers should subscribe there instead.
func (r *Registry) SetAgentEventHandler(handler AgentEventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handler = handler
}
