package dashboard

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zulandar/wapanel/internal/models"
	"github.com/zulandar/wapanel/internal/notify"
	"github.com/zulandar/wapanel/internal/qr"
)

const (
	sseHeartbeat = 15 * time.Second
	toastBuffer  = 8
)

// streamToasts carries a poller's toasts to the stream loop, which alone
// writes to the response. A full buffer drops the toast.
type streamToasts chan toastEvent

type toastEvent struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func (t streamToasts) Success(_ context.Context, msg string) { t.offer(models.LevelSuccess, msg) }
func (t streamToasts) Error(_ context.Context, msg string)   { t.offer(models.LevelError, msg) }

func (t streamToasts) offer(level, msg string) {
	select {
	case t <- toastEvent{Level: level, Text: msg}:
	default:
		log.Printf("dashboard: qr stream: dropped toast %q", msg)
	}
}

// drainToasts writes whatever toasts are still queued.
func drainToasts(w gin.ResponseWriter, toasts streamToasts) {
	for {
		select {
		case t := <-toasts:
			writeSSE(w, "toast", t)
		default:
			return
		}
	}
}

// pollerRegistry maps live SSE streams to their pollers so that a manual
// refresh reaches the right one.
type pollerRegistry struct {
	mu      sync.Mutex
	pollers map[string]*qr.Poller
}

func newPollerRegistry() *pollerRegistry {
	return &pollerRegistry{pollers: make(map[string]*qr.Poller)}
}

func (r *pollerRegistry) add(id string, p *qr.Poller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollers[id] = p
}

func (r *pollerRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pollers, id)
}

func (r *pollerRegistry) get(id string) (*qr.Poller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pollers[id]
	return p, ok
}

func (r *pollerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// handleQRPage renders the pairing page. The code itself arrives over the
// event stream.
func (s *server) handleQRPage(c *gin.Context) {
	name := c.Param("name")
	state := s.backend.InstanceData(c.Request.Context(), locationOf(c), name)
	s.render(c, http.StatusOK, "qr", gin.H{
		"instanceName": name,
		"state":        state,
		"connected":    state.State == models.StateOpen,
	})
}

// handleQREvents streams poller snapshots for one browser tab. Each stream
// owns its poller, which is closed when the client goes away.
func (s *server) handleQREvents(c *gin.Context) {
	ctx := c.Request.Context()
	loc := locationOf(c)
	if loc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId is required"})
		return
	}

	// ?initial= is the code the page was rendered with.
	initial := c.Query("initial")
	if _, ok := qr.DataURI(initial); !ok {
		initial = ""
	}

	toasts := make(streamToasts, toastBuffer)
	p, err := qr.New(qr.Options{
		Fetcher:         s.backend,
		LocationID:      loc,
		InstanceName:    c.Param("name"),
		InitialQR:       initial,
		RefreshInterval: s.qr.RefreshInterval,
		StatusInterval:  s.qr.StatusInterval,
		CloseDelay:      s.qr.CloseDelay,
		Notifier:        notify.Multi{s.notifier, toasts},
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer p.Close()

	id := uuid.NewString()
	s.pollers.add(id, p)
	defer s.pollers.remove(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "hello", gin.H{"poller": id})
	c.Writer.Flush()

	snaps, cancel := p.Subscribe()
	defer cancel()
	go p.Run(ctx)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)})
			c.Writer.Flush()
		case t := <-toasts:
			writeSSE(c.Writer, "toast", t)
			c.Writer.Flush()
		case snap, ok := <-snaps:
			if !ok {
				drainToasts(c.Writer, toasts)
				writeSSE(c.Writer, "closed", gin.H{"redirect": instancePath(c.Param("name"))})
				c.Writer.Flush()
				return
			}
			writeSSE(c.Writer, "snapshot", snap)
			c.Writer.Flush()
		}
	}
}

// handleQRRefresh triggers a manual refresh on the stream's poller.
func (s *server) handleQRRefresh(c *gin.Context) {
	p, ok := s.pollers.get(c.Query("poller"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "poller not found"})
		return
	}
	issued := p.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"issued": issued, "snapshot": p.Snapshot()})
}
