package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"chesscore/internal/core"
	"chesscore/internal/service"
	httpapi "chesscore/internal/transport/http"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	svc := service.New(service.Options{WaitTimeout: 200 * time.Millisecond})
	srv := httptest.NewServer(adaptor.FiberApp(httpapi.NewFiberApp(svc, httpapi.Options{RateLimit: 1000})))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Close(time.Second)
	})
	return New(srv.URL + "/")
}

func TestClientRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	g, err := c.CreateGame(ctx, &CreateGameRequest{White: core.PlayerHuman, Black: core.PlayerHuman})
	if err != nil {
		t.Fatal(err)
	}
	if g, err = c.MakeMove(ctx, g.GameID, "d2d4"); err != nil {
		t.Fatal(err)
	}
	if g.Version != 1 || g.Turn != "b" {
		t.Errorf("after move: version %d turn %s", g.Version, g.Turn)
	}

	// Nothing changes, so the poll times out with the same version
	polled, err := c.WaitGame(ctx, g.GameID, g.Version)
	if err != nil {
		t.Fatal(err)
	}
	if polled.Version != g.Version {
		t.Errorf("poll version = %d, want %d", polled.Version, g.Version)
	}

	b, err := c.GetBoard(ctx, g.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if b.FEN != g.FEN {
		t.Errorf("board FEN %q, game FEN %q", b.FEN, g.FEN)
	}

	h, err := c.Health(ctx)
	if err != nil || h.Games != 1 {
		t.Errorf("health = %+v, %v", h, err)
	}
}

func TestClientAPIError(t *testing.T) {
	c := newClient(t)

	_, err := c.GetGame(context.Background(), uuid.NewString())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an APIError", err)
	}
	if apiErr.Status != 404 || apiErr.Response.Code != httpapi.ErrGameNotFound {
		t.Errorf("got %d %s", apiErr.Status, apiErr.Response.Code)
	}
}
