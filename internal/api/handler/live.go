package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/animator"
	"github.com/wokexpress/storefront/internal/api/models"
	"github.com/wokexpress/storefront/internal/routing"
)

const (
	liveWriteWait    = 5 * time.Second
	livePongWait     = 60 * time.Second
	livePingInterval = 20 * time.Second
	liveReadLimit    = 16 << 10
)

// Inbound message types.
const (
	liveTypeRoute = "route"
	liveTypePlay  = "play"
	liveTypePing  = "ping"
)

var liveUpgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// liveRequest is a client message on /v1/delivery/live.
type liveRequest struct {
	Type        string        `json:"type"`
	Destination *models.Point `json:"destination,omitempty"`
}

// liveEvent is a server message on /v1/delivery/live. Type selects which
// fields are set.
type liveEvent struct {
	Type    string               `json:"type"`
	Route   *models.RouteSummary `json:"route,omitempty"`
	Bounds  *liveBounds          `json:"bounds,omitempty"`
	Path    []models.Point       `json:"path,omitempty"`
	Target  *models.Point        `json:"target,omitempty"`
	Courier *liveCourier         `json:"courier,omitempty"`
	Error   *liveError           `json:"error,omitempty"`
}

type liveBounds struct {
	SouthWest models.Point `json:"southWest"`
	NorthEast models.Point `json:"northEast"`
}

type liveCourier struct {
	Index        int            `json:"index"`
	Total        int            `json:"total"`
	Position     models.Point   `json:"position"`
	Traveled     []models.Point `json:"traveledPath"`
	Remaining    []models.Point `json:"remainingPath"`
	Bearing      float64        `json:"bearing"`
	FollowCamera bool           `json:"followCamera"`
	IsComplete   bool           `json:"isComplete"`
}

type liveError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LiveHandlerConfig holds dependencies for LiveHandler.
type LiveHandlerConfig struct {
	Router   routing.Provider
	Origin   routing.Coordinate
	Animator animator.Config
	Logger   zerolog.Logger
}

// LiveHandler streams route reveal and courier playback over a websocket.
// Each connection owns one MapView; closing the connection detaches it.
type LiveHandler struct {
	router   routing.Provider
	origin   routing.Coordinate
	animator animator.Config
	logger   zerolog.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(cfg LiveHandlerConfig) *LiveHandler {
	return &LiveHandler{
		router:   cfg.Router,
		origin:   cfg.Origin,
		animator: cfg.Animator,
		logger:   cfg.Logger,
	}
}

// Live handles GET /v1/delivery/live.
//
// Client messages:
//
//	{"type":"route","destination":{"lat":..,"lng":..}}  resolve and reveal a route
//	{"type":"play"}                                     start courier playback
//	{"type":"ping"}
//
// Server messages: route, bounds, reveal, camera, courier, delivered, pong, error.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	s := &liveSession{
		conn:     &liveConn{conn: conn},
		resolver: routing.NewResolver(h.router),
		origin:   h.origin,
		logger:   h.logger.With().Str("session", "live").Logger(),
	}
	s.view = animator.NewMapView(h.animator, liveRenderer{conn: s.conn})

	defer func() {
		cancel()
		s.resolver.Cancel()
		s.wg.Wait()
		s.view.Detach()
		_ = conn.Close()
	}()

	go s.keepalive(ctx)
	s.readLoop(ctx)
}

type liveSession struct {
	conn     *liveConn
	view     *animator.MapView
	resolver *routing.Resolver
	origin   routing.Coordinate
	logger   zerolog.Logger
	wg       sync.WaitGroup

	// attachMu orders attaches so a superseded lookup cannot draw over a newer one.
	attachMu sync.Mutex
}

func (s *liveSession) readLoop(ctx context.Context) {
	s.conn.conn.SetReadLimit(liveReadLimit)
	_ = s.conn.conn.SetReadDeadline(time.Now().Add(livePongWait))
	s.conn.conn.SetPongHandler(func(string) error {
		return s.conn.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, data, err := s.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("live connection closed")
			}
			return
		}
		_ = s.conn.conn.SetReadDeadline(time.Now().Add(livePongWait))

		var msg liveRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("INVALID_MESSAGE", "message must be a JSON object")
			continue
		}

		switch msg.Type {
		case liveTypeRoute:
			s.route(ctx, msg.Destination)
		case liveTypePlay:
			s.play()
		case liveTypePing:
			_ = s.conn.send(liveEvent{Type: "pong"})
		default:
			s.sendError("UNKNOWN_TYPE", "unknown message type "+msg.Type)
		}
	}
}

// route resolves in the background so a newer route message can supersede a
// lookup that is still in flight.
func (s *liveSession) route(ctx context.Context, destination *models.Point) {
	if destination == nil {
		s.sendError("INVALID_DESTINATION", "destination is required")
		return
	}
	dest := routing.Coordinate{Lat: destination.Lat, Lng: destination.Lng}
	if !dest.Valid() {
		s.sendError("INVALID_DESTINATION", "destination is out of range")
		return
	}

	lookup := s.resolver.Begin(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		route, err := lookup.Route(s.origin, dest)
		if err != nil {
			if errors.Is(err, routing.ErrSuperseded) || ctx.Err() != nil || !lookup.Latest() {
				return
			}
			s.logger.Warn().Err(err).Msg("live route lookup failed")
			s.sendError(routingErrorCode(err), err.Error())
			return
		}
		s.attach(lookup, route)
	}()
}

// attach sends and draws route unless a newer route message has arrived since
// lookup began. It reports whether the route was attached.
func (s *liveSession) attach(lookup *routing.Lookup, route *routing.Route) bool {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	if !lookup.Latest() {
		return false
	}
	summary := routeSummary(route)
	if err := s.conn.send(liveEvent{Type: "route", Route: &summary}); err != nil {
		return false
	}
	if err := s.view.AttachRoute(route); err != nil {
		if !errors.Is(err, animator.ErrDetached) {
			s.logger.Error().Err(err).Msg("failed to attach route")
		}
		return false
	}
	return true
}

func (s *liveSession) play() {
	err := s.view.PlayCourier()
	switch {
	case err == nil, errors.Is(err, animator.ErrDetached):
	case errors.Is(err, animator.ErrNoRoute):
		s.sendError("NO_ROUTE", "send a route before playing")
	default:
		s.sendError("PLAYBACK_FAILED", err.Error())
	}
}

func (s *liveSession) keepalive(ctx context.Context) {
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.ping(); err != nil {
				return
			}
		}
	}
}

func (s *liveSession) sendError(code, message string) {
	_ = s.conn.send(liveEvent{Type: "error", Error: &liveError{Code: code, Message: message}})
}

func routingErrorCode(err error) string {
	switch {
	case errors.Is(err, routing.ErrNoRouteFound):
		return "NO_ROUTE_FOUND"
	case errors.Is(err, routing.ErrInvalidCoordinates):
		return "INVALID_DESTINATION"
	case errors.Is(err, routing.ErrRateLimitExceeded), errors.Is(err, routing.ErrProviderUnavailable):
		return "ROUTING_UNAVAILABLE"
	default:
		return "ROUTING_FAILED"
	}
}

// liveConn serialises writes; gorilla connections allow one concurrent writer.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) send(ev liveEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return c.conn.WriteJSON(ev)
}

func (c *liveConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait))
}

// liveRenderer forwards MapView output to the websocket.
type liveRenderer struct {
	conn *liveConn
}

func (lr liveRenderer) FitBounds(box animator.BoundingBox) {
	_ = lr.conn.send(liveEvent{Type: "bounds", Bounds: &liveBounds{
		SouthWest: toPoint(box.SouthWest),
		NorthEast: toPoint(box.NorthEast),
	}})
}

func (lr liveRenderer) RenderRoute(partial []routing.Coordinate) {
	_ = lr.conn.send(liveEvent{Type: "reveal", Path: toPoints(partial)})
}

func (lr liveRenderer) FlyTo(target routing.Coordinate) {
	p := toPoint(target)
	_ = lr.conn.send(liveEvent{Type: "camera", Target: &p})
}

func (lr liveRenderer) RenderCourier(frame animator.CourierFrame) {
	_ = lr.conn.send(liveEvent{Type: "courier", Courier: &liveCourier{
		Index:        frame.Index,
		Total:        frame.Total,
		Position:     toPoint(frame.Position),
		Traveled:     toPoints(frame.Traveled),
		Remaining:    toPoints(frame.Remaining),
		Bearing:      frame.Bearing,
		FollowCamera: frame.FollowCamera,
		IsComplete:   frame.IsComplete,
	}})
}

func (lr liveRenderer) ShowDelivered() {
	_ = lr.conn.send(liveEvent{Type: "delivered"})
}

func toPoints(coords []routing.Coordinate) []models.Point {
	points := make([]models.Point, len(coords))
	for i, c := range coords {
		points[i] = toPoint(c)
	}
	return points
}
