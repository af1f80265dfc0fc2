package autoswitch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/infra/storage"
	"github.com/openbitx/explorer/internal/infra/storage/memory"
)

type scriptedProber struct {
	healthy map[string]bool
	probes  map[string]int
}

func (p *scriptedProber) Probe(_ context.Context, api *provider.Api, _ provider.Operation) error {
	p.probes[api.Provider.Name]++
	if p.healthy[api.Provider.Name] {
		return nil
	}
	return errors.New("probe failed")
}

func emptyFamily() *provider.Family {
	return &provider.Family{
		Name: "probe",
		Kind: provider.KindREST,
		Templates: map[provider.Operation]provider.RequestTemplate{
			provider.OpBalance: {Path: "/balance/{address}"},
		},
	}
}

func testService(t *testing.T, prober Prober) (*Service, storage.DefaultProviderRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mkApi := func(name string) *provider.Api {
		p := &domain.Provider{Name: name, Network: domain.NetworkBTC, BaseURL: "http://unused.invalid"}
		return provider.NewApi(p, emptyFamily(), logger)
	}
	iface := explorer.NewInterface("BTC", domain.NetworkBTC,
		map[provider.Operation][]*provider.Api{
			provider.OpBalance: {mkApi("p1"), mkApi("p2"), mkApi("p3")},
		}, nil, nil, logger)
	exp := explorer.NewBlockchainExplorer([]*explorer.Interface{iface})

	store := memory.NewDefaultProviderRepo(memory.NewMemoryStorage())
	cfg := config.HealthCheckConfig{
		Interval:     time.Minute,
		ProbeTimeout: time.Second,
		MaxRetries:   3,
	}
	return New(exp, store, cfg, prober, logger), store
}

func TestCheckNow_PromotesFirstHealthyAlternative(t *testing.T) {
	prober := &scriptedProber{
		healthy: map[string]bool{"p1": false, "p2": true, "p3": true},
		probes:  map[string]int{},
	}
	svc, store := testService(t, prober)

	svc.CheckNow(context.Background())

	def, err := store.Get(context.Background(), domain.NetworkBTC, string(provider.OpBalance))
	if err != nil {
		t.Fatalf("expected default recorded: %v", err)
	}
	if def.ProviderName != "p2" {
		t.Errorf("expected p2 promoted, got %s", def.ProviderName)
	}
	// Unhealthy default exhausts its retry budget before alternatives run.
	if prober.probes["p1"] != 3 {
		t.Errorf("expected 3 probes of p1, got %d", prober.probes["p1"])
	}
	if prober.probes["p2"] != 1 {
		t.Errorf("expected 1 probe of p2, got %d", prober.probes["p2"])
	}
	// First healthy alternative wins; p3 untouched.
	if prober.probes["p3"] != 0 {
		t.Errorf("expected p3 untouched, got %d probes", prober.probes["p3"])
	}
}

func TestCheckNow_HealthyDefaultKept(t *testing.T) {
	prober := &scriptedProber{
		healthy: map[string]bool{"p1": true, "p2": true, "p3": true},
		probes:  map[string]int{},
	}
	svc, store := testService(t, prober)

	svc.CheckNow(context.Background())

	_, err := store.Get(context.Background(), domain.NetworkBTC, string(provider.OpBalance))
	if !errors.Is(err, storage.ErrDefaultNotFound) {
		t.Fatalf("expected no switch recorded, got %v", err)
	}
	if prober.probes["p1"] != 1 || prober.probes["p2"] != 0 {
		t.Errorf("unexpected probes: %+v", prober.probes)
	}
}

func TestCheckNow_AllDownLeavesDefaultUnchanged(t *testing.T) {
	prober := &scriptedProber{
		healthy: map[string]bool{},
		probes:  map[string]int{},
	}
	svc, store := testService(t, prober)

	svc.CheckNow(context.Background())

	_, err := store.Get(context.Background(), domain.NetworkBTC, string(provider.OpBalance))
	if !errors.Is(err, storage.ErrDefaultNotFound) {
		t.Fatalf("expected no default recorded, got %v", err)
	}
	for _, name := range []string{"p1", "p2", "p3"} {
		if prober.probes[name] != 3 {
			t.Errorf("expected 3 probes of %s, got %d", name, prober.probes[name])
		}
	}
}
