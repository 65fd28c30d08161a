package sqlstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("ATELIER_API_POSTGRESQL_DSN")
}

func (m PGConfig) FormatDSN() string {
	return m.DSN
}

func setupTestProvider(t *testing.T) *Provider {
	t.Helper()
	cfg := PGConfig{}
	cfg.FromENV()
	if cfg.DSN == "" {
		t.Skip("ATELIER_API_POSTGRESQL_DSN not set")
	}
	p := MustSetup(cfg)()
	if err := p.Install(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCanvasRoundtrip(t *testing.T) {
	p := setupTestProvider(t)
	utils.SetupIDWorker(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	id := utils.GenRandomID()
	data, _ := json.Marshal(map[string]any{"elements": []any{}})

	err := p.stores.CanvasStore.Create(ctx, types.Canvas{
		ID:   id,
		Name: "test canvas",
		Data: types.CanvasData(data),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.stores.CanvasStore.Delete(ctx, id)

	got, err := p.stores.CanvasStore.GetCanvas(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "test canvas" {
		t.Fatalf("unexpected name %q", got.Name)
	}

	if err = p.stores.CanvasStore.UpdateName(ctx, id, "renamed"); err != nil {
		t.Fatal(err)
	}
	got, err = p.stores.CanvasStore.GetCanvas(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed" {
		t.Fatalf("rename not applied, got %q", got.Name)
	}

	total, err := p.stores.CanvasStore.Total(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total == 0 {
		t.Fatal("total should count the canvas just created")
	}
}

func TestChatSessionLifecycle(t *testing.T) {
	p := setupTestProvider(t)
	utils.SetupIDWorker(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	canvasID := utils.GenRandomID()
	sessionID := utils.GenRandomID()

	err := p.stores.ChatSessionStore.Create(ctx, types.ChatSession{
		ID:       sessionID,
		CanvasID: canvasID,
		Title:    "New Chat",
		Status:   types.CHAT_SESSION_STATUS_UNOFFICIAL,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.stores.ChatSessionStore.Delete(ctx, sessionID)

	if err = p.stores.ChatSessionStore.UpdateSessionStatus(ctx, sessionID, types.CHAT_SESSION_STATUS_OFFICIAL); err != nil {
		t.Fatal(err)
	}

	list, err := p.stores.ChatSessionStore.ListByCanvas(ctx, canvasID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != types.CHAT_SESSION_STATUS_OFFICIAL {
		t.Fatalf("unexpected session list %+v", list)
	}
}
