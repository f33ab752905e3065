package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var (
	// ErrConfig means the configuration source could not be read at all.
	ErrConfig = errors.New("registry config unreadable")
	// ErrConfigParse means the configuration was read but is malformed.
	ErrConfigParse = errors.New("registry config invalid")
)

type agentConfig struct {
	Address     string   `json:"address"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type tokenConfig struct {
	Address     string `json:"address"`
	TotalSupply string `json:"totalSupply"`
	Decimals    uint16 `json:"decimals"`
}

type configDoc struct {
	Agents map[string]agentConfig `json:"agents"`
	Tokens map[string]tokenConfig `json:"tokens"`
}

// loadConfig parses the registry configuration document into agent and token
// maps. It is all-or-nothing: any invalid entry fails the whole load so a
// half-loaded registry is never observable.
func loadConfig(path string) (map[string]AgentInfo, map[string]TokenInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}

	var doc configDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	agents := make(map[string]AgentInfo, len(doc.Agents))
	for name, a := range doc.Agents {
		if !IsValidAddress(a.Address) {
			return nil, nil, fmt.Errorf("%w: agent %q has invalid address %q", ErrConfigParse, name, a.Address)
		}
		agents[name] = AgentInfo{
			Address:     a.Address,
			Role:        a.Role,
			Permissions: dedupe(a.Permissions),
		}
	}

	tokens := make(map[string]TokenInfo, len(doc.Tokens))
	for symbol, t := range doc.Tokens {
		if !IsValidAddress(t.Address) {
			return nil, nil, fmt.Errorf("%w: token %q has invalid address %q", ErrConfigParse, symbol, t.Address)
		}
		supply, err := strconv.ParseUint(t.TotalSupply, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: token %q has invalid totalSupply %q", ErrConfigParse, symbol, t.TotalSupply)
		}
		if t.Decimals > 255 {
			return nil, nil, fmt.Errorf("%w: token %q has decimals %d out of range", ErrConfigParse, symbol, t.Decimals)
		}
		tokens[symbol] = TokenInfo{
			Address:     t.Address,
			TotalSupply: supply,
			Decimals:    uint8(t.Decimals),
		}
	}

	return agents, tokens, nil
}

// dedupe drops duplicate permission entries while keeping order.
func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
