package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls AdminService over Connect with the same JSON codec.
type Client struct {
	getState             *connect.Client[Empty, StateResponse]
	advancePick          *connect.Client[Empty, StateResponse]
	retreatPick          *connect.Client[Empty, StateResponse]
	draftPlayer          *connect.Client[DraftPlayerRequest, StateResponse]
	undoPick             *connect.Client[Empty, StateResponse]
	resetDraft           *connect.Client[Empty, StateResponse]
	setTimerRunning      *connect.Client[SetTimerRunningRequest, StateResponse]
	resetTimer           *connect.Client[Empty, StateResponse]
	setDraftOrder        *connect.Client[SetDraftOrderRequest, StateResponse]
	setDefaultDuration   *connect.Client[SetDefaultDurationRequest, StateResponse]
	saveDefaultOrder     *connect.Client[SaveDefaultOrderRequest, DefaultOrderResponse]
	getDefaultOrder      *connect.Client[Empty, DefaultOrderResponse]
	toggleView           *connect.Client[ToggleViewRequest, StateResponse]
	setFilters           *connect.Client[SetFiltersRequest, ListAvailablePlayersResponse]
	listAvailablePlayers *connect.Client[Empty, ListAvailablePlayersResponse]
}

// NewClient creates a client for the service at baseURL, e.g. http://localhost:8080.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		getState:             connect.NewClient[Empty, StateResponse](httpClient, baseURL+GetStateProcedure, opts...),
		advancePick:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+AdvancePickProcedure, opts...),
		retreatPick:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+RetreatPickProcedure, opts...),
		draftPlayer:          connect.NewClient[DraftPlayerRequest, StateResponse](httpClient, baseURL+DraftPlayerProcedure, opts...),
		undoPick:             connect.NewClient[Empty, StateResponse](httpClient, baseURL+UndoPickProcedure, opts...),
		resetDraft:           connect.NewClient[Empty, StateResponse](httpClient, baseURL+ResetDraftProcedure, opts...),
		setTimerRunning:      connect.NewClient[SetTimerRunningRequest, StateResponse](httpClient, baseURL+SetTimerRunningProcedure, opts...),
		resetTimer:           connect.NewClient[Empty, StateResponse](httpClient, baseURL+ResetTimerProcedure, opts...),
		setDraftOrder:        connect.NewClient[SetDraftOrderRequest, StateResponse](httpClient, baseURL+SetDraftOrderProcedure, opts...),
		setDefaultDuration:   connect.NewClient[SetDefaultDurationRequest, StateResponse](httpClient, baseURL+SetDefaultDurationProcedure, opts...),
		saveDefaultOrder:     connect.NewClient[SaveDefaultOrderRequest, DefaultOrderResponse](httpClient, baseURL+SaveDefaultOrderProcedure, opts...),
		getDefaultOrder:      connect.NewClient[Empty, DefaultOrderResponse](httpClient, baseURL+GetDefaultOrderProcedure, opts...),
		toggleView:           connect.NewClient[ToggleViewRequest, StateResponse](httpClient, baseURL+ToggleViewProcedure, opts...),
		setFilters:           connect.NewClient[SetFiltersRequest, ListAvailablePlayersResponse](httpClient, baseURL+SetFiltersProcedure, opts...),
		listAvailablePlayers: connect.NewClient[Empty, ListAvailablePlayersResponse](httpClient, baseURL+ListAvailablePlayersProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.getState, &Empty{})
}

func (c *Client) AdvancePick(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.advancePick, &Empty{})
}

func (c *Client) RetreatPick(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.retreatPick, &Empty{})
}

func (c *Client) DraftPlayer(ctx context.Context, name string) (*StateResponse, error) {
	return call(ctx, c.draftPlayer, &DraftPlayerRequest{Name: name})
}

func (c *Client) UndoPick(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.undoPick, &Empty{})
}

func (c *Client) ResetDraft(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.resetDraft, &Empty{})
}

func (c *Client) SetTimerRunning(ctx context.Context, running bool) (*StateResponse, error) {
	return call(ctx, c.setTimerRunning, &SetTimerRunningRequest{Running: running})
}

func (c *Client) ResetTimer(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.resetTimer, &Empty{})
}

func (c *Client) SetDraftOrder(ctx context.Context, o []int) (*StateResponse, error) {
	return call(ctx, c.setDraftOrder, &SetDraftOrderRequest{Order: o})
}

func (c *Client) SetDefaultDuration(ctx context.Context, secs int) (*StateResponse, error) {
	return call(ctx, c.setDefaultDuration, &SetDefaultDurationRequest{Seconds: secs})
}

func (c *Client) SaveDefaultOrder(ctx context.Context, o []int) (*DefaultOrderResponse, error) {
	return call(ctx, c.saveDefaultOrder, &SaveDefaultOrderRequest{Order: o})
}

func (c *Client) GetDefaultOrder(ctx context.Context) (*DefaultOrderResponse, error) {
	return call(ctx, c.getDefaultOrder, &Empty{})
}

func (c *Client) ToggleView(ctx context.Context, showBestAvailable bool) (*StateResponse, error) {
	return call(ctx, c.toggleView, &ToggleViewRequest{ShowBestAvailable: showBestAvailable})
}

func (c *Client) SetFilters(ctx context.Context, search, position string) (*ListAvailablePlayersResponse, error) {
	return call(ctx, c.setFilters, &SetFiltersRequest{Search: search, Position: position})
}

func (c *Client) ListAvailablePlayers(ctx context.Context) (*ListAvailablePlayersResponse, error) {
	return call(ctx, c.listAvailablePlayers, &Empty{})
}
