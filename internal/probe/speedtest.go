package probe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"
)

// SpeedtestProbe measures latency to a speedtest.net server instead of
// spawning ping. The server is resolved once and reused.
//
// Target selects the server by ID; empty means the closest server.
type SpeedtestProbe struct {
	Timeout time.Duration

	mu     sync.Mutex
	client *st.Speedtest
	server *st.Server
	chosen string
}

func NewSpeedtestProbe(timeout time.Duration) *SpeedtestProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// Avoid package-level speedtest helpers; speedtest-go keeps package-level state.
	return &SpeedtestProbe{
		Timeout: timeout,
		client:  st.New(st.WithUserConfig(&st.UserConfig{SavingMode: true, MaxConnections: 1})),
	}
}

// Resolve fetches the server list and picks the server for target.
// It bounds itself with ctx only, so callers resolve before the first tick.
func (p *SpeedtestProbe) Resolve(ctx context.Context, target string) (*st.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolveLocked(ctx, target)
}

func (p *SpeedtestProbe) resolveLocked(ctx context.Context, target string) (*st.Server, error) {
	if p.server != nil && p.chosen == target {
		return p.server, nil
	}
	servers, err := p.client.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	s := pickServer(servers, target)
	if s == nil {
		if target != "" {
			return nil, fmt.Errorf("speedtest server %q not found", target)
		}
		return nil, fmt.Errorf("no servers available")
	}
	p.server, p.chosen = s, target
	return s, nil
}

func pickServer(servers st.Servers, target string) *st.Server {
	target = strings.TrimSpace(target)
	if target != "" {
		for _, s := range servers {
			if s != nil && s.ID == target {
				return s
			}
		}
		return nil
	}
	cands := make([]*st.Server, 0, len(servers))
	for _, s := range servers {
		if s != nil {
			cands = append(cands, s)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Distance < cands[j].Distance })
	return cands[0]
}

func (p *SpeedtestProbe) Probe(ctx context.Context, target string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.resolveLocked(ctx, target)
	if err != nil {
		return Unavailable(err.Error())
	}
	if err := s.PingTestContext(ctx, nil); err != nil {
		return Unavailable("ping test: " + err.Error())
	}
	if s.Latency <= 0 {
		return Unavailable("no latency reported")
	}
	return Latency(float64(s.Latency) / float64(time.Millisecond))
}
