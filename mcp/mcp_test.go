package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/chat"
	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/orders"
	"github.com/nileshindira/stock-chat-app/rng"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func testDeps(t *testing.T, p catalog.Profile) Deps {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := catalog.Default(p)
	require.NoError(t, err)
	src := rng.New(9)
	store := live.Seed(c, src, fixedNow)
	journal, err := orders.OpenJournal()
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return Deps{
		Profile: p,
		Chat:    chat.New(chat.Config{Profile: p, Catalog: c, Store: store, Rand: src, Logger: logger}),
		Store:   store,
		Desk:    orders.NewDesk(orders.Config{Catalog: c, Store: store, Journal: journal, Logger: logger}),
		Logger:  logger,
	}
}

func call(t *testing.T, tool Tool, d Deps, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Tool().Name
	req.Params.Arguments = args
	res, err := tool.Handler(d)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestParseExcludedTools(t *testing.T) {
	assert.Empty(t, parseExcludedTools(""))
	assert.Equal(t, map[string]bool{"chat": true, "place_order": true}, parseExcludedTools(" chat, ,place_order "))
}

func TestRegisterToolsByProfile(t *testing.T) {
	d := testDeps(t, catalog.ProfileCarousel)
	srv := server.NewMCPServer("test", "v0", server.WithToolCapabilities(false))
	assert.Equal(t, []string{"chat", "live_snapshot"}, RegisterTools(srv, d, ""))

	d = testDeps(t, catalog.ProfileTicker)
	srv = server.NewMCPServer("test", "v0", server.WithToolCapabilities(false))
	assert.Equal(t, []string{"chat", "live_snapshot", "list_orders"}, RegisterTools(srv, d, "place_order"))
}

func TestChatTool(t *testing.T) {
	d := testDeps(t, catalog.ProfileCarousel)
	res := call(t, &ChatTool{}, d, map[string]any{"message": "show me hotels in goa"})
	assert.False(t, res.IsError)

	var reply chat.CarouselReply
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &reply))
	require.Len(t, reply.Carousels, 1)
	assert.Equal(t, "hotels", reply.Carousels[0].ID)

	res = call(t, &ChatTool{}, d, map[string]any{})
	assert.True(t, res.IsError)
}

func TestLiveSnapshotTool(t *testing.T) {
	d := testDeps(t, catalog.ProfileTicker)

	res := call(t, &LiveSnapshotTool{}, d, map[string]any{"ids": []any{"NSE:TCS", "zzz"}})
	var snap map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &snap))
	assert.Len(t, snap, 1)
	assert.Equal(t, 3890.0, snap["NSE:TCS"]["ltp"])

	res = call(t, &LiveSnapshotTool{}, d, nil)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &snap))
	assert.Len(t, snap, d.Store.Len())
}

func TestOrderTools(t *testing.T) {
	d := testDeps(t, catalog.ProfileTicker)

	res := call(t, &ListOrdersTool{}, d, nil)
	assert.Contains(t, text(t, res), "No orders yet")

	res = call(t, &PlaceOrderTool{}, d, map[string]any{"symbol": "NSE:TCS", "side": "HOLD", "qty": 1})
	assert.True(t, res.IsError)
	assert.Equal(t, orders.ErrInvalidSide, text(t, res))

	res = call(t, &PlaceOrderTool{}, d, map[string]any{"symbol": "NSE:TCS", "side": "BUY", "qty": 2.0})
	require.False(t, res.IsError, text(t, res))
	var placed orders.Result
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &placed))
	assert.True(t, placed.OK)
	assert.Regexp(t, `^ORD-\d+-[0-9a-f]{6}$`, placed.OrderID)

	res = call(t, &ListOrdersTool{}, d, map[string]any{"limit": 5})
	var list []orders.Order
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &list))
	require.Len(t, list, 1)
	assert.Equal(t, placed.OrderID, list[0].ID)
}
