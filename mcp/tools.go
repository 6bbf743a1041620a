package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nileshindira/stock-chat-app/orders"
)

// ChatTool answers a chat message exactly like POST /api/chat.
type ChatTool struct{}

func (*ChatTool) Tool() mcp.Tool {
	return mcp.NewTool("chat",
		mcp.WithDescription("Send a chat message and receive carousels (carousel profile) or stock cards (ticker profile)."),
		mcp.WithString("message",
			mcp.Description("Free-text message, e.g. 'show me hotels in goa' or 'buy reliance'"),
			mcp.Required(),
		),
	)
}

func (*ChatTool) Handler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResponse(d.Chat.Reply(message), "chat")
	}
}

// LiveSnapshotTool returns current live values for a set of ids.
type LiveSnapshotTool struct{}

func (*LiveSnapshotTool) Tool() mcp.Tool {
	return mcp.NewTool("live_snapshot",
		mcp.WithDescription("Get the current live values for item ids or symbols. Unknown ids are ignored; omit ids to get everything."),
		mcp.WithArray("ids",
			mcp.Description("Item ids or symbols such as 'NSE:TCS'"),
			mcp.WithStringItems(),
		),
	)
}

func (*LiveSnapshotTool) Handler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := request.GetStringSlice("ids", nil)
		if len(ids) == 0 {
			ids = d.Store.Keys()
		}
		return marshalResponse(d.Store.Snapshot(d.Store.Filter(ids)), "live_snapshot")
	}
}

// PlaceOrderTool places a simulated order through the desk.
type PlaceOrderTool struct{}

func (*PlaceOrderTool) Tool() mcp.Tool {
	return mcp.NewTool("place_order",
		mcp.WithDescription("Place a simulated market order. Nothing is sent to an exchange."),
		mcp.WithString("symbol",
			mcp.Description("Symbol in exchange:tradingsymbol format (e.g. 'NSE:INFY')"),
			mcp.Required(),
		),
		mcp.WithString("side",
			mcp.Description("Order side"),
			mcp.Required(),
			mcp.Enum("BUY", "SELL"),
		),
		mcp.WithNumber("qty",
			mcp.Description("Quantity, must be positive"),
			mcp.Required(),
		),
	)
}

func (*PlaceOrderTool) Handler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := d.Desk.Place(ctx, orders.Request{
			Symbol: strings.TrimSpace(request.GetString("symbol", "")),
			Side:   request.GetString("side", ""),
			Qty:    request.GetInt("qty", 0),
		})
		if !res.OK {
			return mcp.NewToolResultError(res.Error), nil
		}
		return marshalResponse(res, "place_order")
	}
}

// ListOrdersTool lists recent simulated orders.
type ListOrdersTool struct{}

func (*ListOrdersTool) Tool() mcp.Tool {
	return mcp.NewTool("list_orders",
		mcp.WithDescription("List recent simulated orders, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum orders to return (default 50)"),
		),
	)
}

func (*ListOrdersTool) Handler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := d.Desk.Recent(ctx, request.GetInt("limit", 50))
		if err != nil {
			d.Logger.Error("Failed to list orders", "error", err)
			return mcp.NewToolResultError("Failed to list orders"), nil
		}
		if len(list) == 0 {
			return mcp.NewToolResultText("No orders yet. Use place_order to create one."), nil
		}
		return marshalResponse(list, "list_orders")
	}
}
