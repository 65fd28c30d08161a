package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

// 占位会话清理只应删掉真正空置的，带历史的要靠 Exist 兜住
func TestUnofficialSessionCleanupDecision(t *testing.T) {
	p := setupTestProvider(t)
	utils.SetupIDWorker(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	canvasID := utils.GenRandomID()
	emptyID := utils.GenRandomID()
	busyID := utils.GenRandomID()

	for _, id := range []string{emptyID, busyID} {
		err := p.stores.ChatSessionStore.Create(ctx, types.ChatSession{
			ID:       id,
			CanvasID: canvasID,
			Title:    "New Chat",
			Status:   types.CHAT_SESSION_STATUS_UNOFFICIAL,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	defer p.stores.ChatSessionStore.DeleteByCanvas(ctx, canvasID)
	defer p.stores.ChatMessageStore.DeleteSessionMessage(ctx, busyID)

	err := p.stores.ChatMessageStore.Create(ctx, &types.ChatMessage{
		ID:        utils.GenUniqIDStr(),
		SessionID: busyID,
		Role:      types.USER_ROLE_USER,
		Message:   "draw a cat",
		Complete:  types.MESSAGE_PROGRESS_COMPLETE,
		SendTime:  time.Now().Unix(),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 回拨访问时间让两条会话都过期
	stale := time.Now().Add(-48 * time.Hour).Unix()
	_, err = p.SqlProvider.GetMaster().Exec(
		"UPDATE "+types.TABLE_CHAT_SESSION.Name()+" SET latest_access_time = $1 WHERE canvas_id = $2",
		stale, canvasID)
	if err != nil {
		t.Fatal(err)
	}

	before := time.Now().Add(-24 * time.Hour).Unix()
	list, err := p.stores.ChatSessionStore.ListUnofficial(ctx, before, 50)
	if err != nil {
		t.Fatal(err)
	}

	found := map[string]bool{}
	for _, v := range list {
		found[v.ID] = true
	}
	if !found[emptyID] || !found[busyID] {
		t.Fatalf("expected both stale sessions listed, got %+v", found)
	}

	for _, v := range list {
		if v.CanvasID != canvasID {
			continue
		}
		exist, err := p.stores.ChatMessageStore.Exist(ctx, v.ID)
		if err != nil {
			t.Fatal(err)
		}
		if exist {
			if err = p.stores.ChatSessionStore.UpdateSessionStatus(ctx, v.ID, types.CHAT_SESSION_STATUS_OFFICIAL); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err = p.stores.ChatSessionStore.Delete(ctx, v.ID); err != nil {
			t.Fatal(err)
		}
	}

	if _, err = p.stores.ChatSessionStore.GetChatSession(ctx, emptyID); err == nil {
		t.Fatal("empty placeholder session should be gone")
	}

	kept, err := p.stores.ChatSessionStore.GetChatSession(ctx, busyID)
	if err != nil {
		t.Fatal(err)
	}
	if kept.Status != types.CHAT_SESSION_STATUS_OFFICIAL {
		t.Fatalf("session with history should be promoted, got status %d", kept.Status)
	}
}

func TestDeleteMessagesByCanvas(t *testing.T) {
	p := setupTestProvider(t)
	utils.SetupIDWorker(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	canvasID := utils.GenRandomID()
	sessionID := utils.GenRandomID()

	err := p.stores.ChatSessionStore.Create(ctx, types.ChatSession{
		ID:       sessionID,
		CanvasID: canvasID,
		Title:    "cascade",
		Status:   types.CHAT_SESSION_STATUS_OFFICIAL,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.stores.ChatSessionStore.DeleteByCanvas(ctx, canvasID)

	err = p.stores.ChatMessageStore.Create(ctx, &types.ChatMessage{
		ID:        utils.GenUniqIDStr(),
		SessionID: sessionID,
		Role:      types.USER_ROLE_USER,
		Message:   "hello",
		Complete:  types.MESSAGE_PROGRESS_COMPLETE,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err = p.stores.ChatMessageStore.DeleteByCanvas(ctx, canvasID); err != nil {
		t.Fatal(err)
	}

	exist, err := p.stores.ChatMessageStore.Exist(ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if exist {
		t.Fatal("messages should be gone after canvas cascade delete")
	}
}
