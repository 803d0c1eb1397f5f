// Package api serves the latest stream figures over HTTP.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"YieldStream/internal/chain"
	"YieldStream/internal/feed"
	"YieldStream/internal/model"
	"YieldStream/internal/recorder"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StreamSource supplies evaluated streams.
type StreamSource interface {
	Latest() []model.StreamUpdate
	Lookup(ctx context.Context, id uint64) (model.StreamUpdate, error)
}

// AssetSource lists registry assets.
type AssetSource interface {
	LoadAssets(ctx context.Context, owner string) ([]*model.Asset, error)
}

// Server is the read-only HTTP API.
type Server struct {
	app     *fiber.App
	streams StreamSource
	assets  AssetSource
	history recorder.Recorder
	hub     *feed.Hub
}

// NewServer builds the fiber app and registers the routes.
func NewServer(streams StreamSource, assets AssetSource, history recorder.Recorder, hub *feed.Hub, allowedOrigins string) *Server {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	// WriteTimeout stays 0: /api/events responses are open-ended.
	app := fiber.New(fiber.Config{
		AppName:               "YieldStream",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          0,
		IdleTimeout:           2 * time.Minute,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET, OPTIONS",
	}))

	s := &Server{app: app, streams: streams, assets: assets, history: history, hub: hub}
	app.Get("/healthz", s.health)
	api := app.Group("/api")
	api.Get("/streams", s.listStreams)
	api.Get("/streams/:id", s.getStream)
	api.Get("/streams/:id/claimable", s.getClaimable)
	api.Get("/streams/:id/history", s.getHistory)
	api.Get("/assets", s.listAssets)
	api.Get("/events", s.events)
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.Printf("[INFO] api listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) health(c *fiber.Ctx) error {
	out := fiber.Map{"status": "ok", "streams": len(s.streams.Latest())}
	if s.hub != nil {
		out["subscribers"] = s.hub.Subscribers()
		out["dropped_events"] = s.hub.Dropped()
	}
	return c.JSON(out)
}

func (s *Server) listStreams(c *fiber.Ctx) error {
	latest := s.streams.Latest()
	out := make([]streamView, 0, len(latest))
	for _, u := range latest {
		out = append(out, newStreamView(u))
	}
	return c.JSON(out)
}

func (s *Server) getStream(c *fiber.Ctx) error {
	u, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(newStreamView(u))
}

func (s *Server) getClaimable(c *fiber.Ctx) error {
	u, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"stream_id": u.StreamID,
		"claimable": u.Metrics.Claimable,
		"status":    u.Metrics.Status,
		"at":        u.At.Unix(),
	})
}

func (s *Server) getHistory(c *fiber.Ctx) error {
	id, err := streamID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 100)
	samples, err := s.history.History(id, limit)
	if err != nil {
		log.Printf("[ERROR] history for stream %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "history unavailable"})
	}
	out := make([]sampleView, 0, len(samples))
	for _, smp := range samples {
		out = append(out, newSampleView(smp))
	}
	return c.JSON(out)
}

func (s *Server) listAssets(c *fiber.Ctx) error {
	if s.assets == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "asset listing disabled"})
	}
	assets, err := s.assets.LoadAssets(c.UserContext(), c.Query("owner"))
	if err != nil {
		log.Printf("[ERROR] load assets: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	now := time.Now()
	out := make([]assetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, newAssetView(a, now))
	}
	return c.JSON(out)
}

// events streams every published update as server-sent events. An optional
// ?stream=<id> restricts the feed to one stream.
func (s *Server) events(c *fiber.Ctx) error {
	if s.hub == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "live feed disabled")
	}
	var only uint64
	if v := c.Query("stream"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid stream id")
		}
		only = id
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	updates, cancel := s.hub.Subscribe(32)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for u := range updates {
			if only != 0 && u.StreamID != only {
				continue
			}
			data, err := encodeEvent(u)
			if err != nil {
				log.Printf("[WARN] encode event: %v", err)
				continue
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

func encodeEvent(u model.StreamUpdate) ([]byte, error) {
	data, err := json.Marshal(newStreamView(u))
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: stream\ndata: %s\n\n", data)), nil
}

// lookup resolves :id and re-evaluates the stream at request time.
func (s *Server) lookup(c *fiber.Ctx) (model.StreamUpdate, error) {
	id, err := streamID(c)
	if err != nil {
		return model.StreamUpdate{}, err
	}
	u, err := s.streams.Lookup(c.UserContext(), id)
	switch {
	case errors.Is(err, chain.ErrStreamNotFound):
		return u, fiber.NewError(fiber.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("[ERROR] lookup stream %d: %v", id, err)
		return u, err
	}
	return u, nil
}

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func streamID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid stream id")
	}
	return id, nil
}

type streamView struct {
	StreamID        uint64              `json:"stream_id"`
	Sender          string              `json:"sender,omitempty"`
	Recipient       string              `json:"recipient,omitempty"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	FlowRate        decimal.Decimal     `json:"flow_rate"`
	StartTime       int64               `json:"start_time"`
	StopTime        int64               `json:"stop_time"`
	AmountWithdrawn decimal.Decimal     `json:"amount_withdrawn"`
	IsActive        bool                `json:"is_active"`
	Metrics         model.StreamMetrics `json:"metrics"`
	At              int64               `json:"at"`
}

func newStreamView(u model.StreamUpdate) streamView {
	v := streamView{StreamID: u.StreamID, Metrics: u.Metrics, At: u.At.Unix()}
	if s := u.Snapshot; s != nil {
		v.Sender = s.Sender
		v.Recipient = s.Recipient
		v.TotalAmount = s.TotalAmount
		v.FlowRate = s.FlowRate
		v.StartTime = s.StartTime
		v.StopTime = s.StopTime
		v.AmountWithdrawn = s.AmountWithdrawn
		v.IsActive = s.IsActive
	}
	return v
}

type sampleView struct {
	At              int64              `json:"at"`
	Status          model.StreamStatus `json:"status"`
	TotalVested     decimal.Decimal    `json:"total_vested"`
	Claimable       decimal.Decimal    `json:"claimable"`
	Withdrawn       decimal.Decimal    `json:"withdrawn"`
	RemainingToVest decimal.Decimal    `json:"remaining_to_vest"`
	ProgressPercent float64            `json:"progress_percent"`
}

func newSampleView(s recorder.Sample) sampleView {
	return sampleView{
		At:              s.At.Unix(),
		Status:          s.Status,
		TotalVested:     s.TotalVested,
		Claimable:       s.Claimable,
		Withdrawn:       s.Withdrawn,
		RemainingToVest: s.RemainingToVest,
		ProgressPercent: s.ProgressPercent,
	}
}

type assetView struct {
	TokenID     uint64         `json:"token_id"`
	AssetType   string         `json:"asset_type"`
	Owner       string         `json:"owner"`
	MetadataURI string         `json:"metadata_uri"`
	Metadata    model.Metadata `json:"metadata"`
	Stream      *streamView    `json:"stream,omitempty"`
}

func newAssetView(a *model.Asset, now time.Time) assetView {
	v := assetView{
		TokenID:     a.Token.TokenID,
		AssetType:   a.Token.AssetType.Name(),
		Owner:       a.Owner,
		MetadataURI: a.Token.MetadataURI,
		Metadata:    a.Metadata,
	}
	if a.Stream != nil {
		sv := newStreamView(evaluateAt(a.Stream, now))
		v.Stream = &sv
	}
	return v
}
