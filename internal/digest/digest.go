// Package digest posts a periodic summary of a location's WhatsApp
// instances to the configured chat channels.
package digest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/wapanel/internal/models"
	"github.com/zulandar/wapanel/internal/notify"
)

const stateUnknown = "unknown"

// Lister returns the instances of a location.
type Lister interface {
	ListInstances(ctx context.Context, locationID string) ([]models.Instance, error)
}

// Report summarizes one location at a point in time.
type Report struct {
	LocationID   string
	GeneratedAt  time.Time
	Total        int
	ByState      map[string]int
	WithAI       int
	MainDevices  int
	Disconnected []string // display names of instances not open
}

// Build fetches the instances and summarizes them. It returns nil when the
// location has no instances.
func Build(ctx context.Context, l Lister, locationID string, now time.Time) (*Report, error) {
	instances, err := l.ListInstances(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("digest: list instances: %w", err)
	}
	if len(instances) == 0 {
		return nil, nil
	}

	r := &Report{
		LocationID:  locationID,
		GeneratedAt: now,
		Total:       len(instances),
		ByState:     make(map[string]int),
	}
	for _, inst := range instances {
		state := instanceState(inst)
		r.ByState[state]++
		if inst.ActiveIA {
			r.WithAI++
		}
		if inst.MainDevice {
			r.MainDevices++
		}
		if state != models.StateOpen {
			r.Disconnected = append(r.Disconnected, inst.DisplayName())
		}
	}
	sort.Strings(r.Disconnected)
	return r, nil
}

func instanceState(inst models.Instance) string {
	switch {
	case inst.ConnectionStatus != "":
		return inst.ConnectionStatus
	case inst.Status != "":
		return inst.Status
	default:
		return stateUnknown
	}
}

// Format renders a report as a chat message.
func Format(r *Report) notify.Message {
	connected := r.ByState[models.StateOpen]
	color := notify.ColorSuccess
	if connected < r.Total {
		color = notify.ColorError
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%d de %d instancias conectadas", connected, r.Total)
	if len(r.Disconnected) > 0 {
		fmt.Fprintf(&body, "\nSin conexión: %s", strings.Join(r.Disconnected, ", "))
	}

	states := make([]string, 0, len(r.ByState))
	for s := range r.ByState {
		states = append(states, s)
	}
	sort.Strings(states)

	fields := make([]notify.Field, 0, len(states)+2)
	for _, s := range states {
		fields = append(fields, notify.Field{Name: s, Value: strconv.Itoa(r.ByState[s]), Short: true})
	}
	fields = append(fields,
		notify.Field{Name: "Con IA", Value: strconv.Itoa(r.WithAI), Short: true},
		notify.Field{Name: "Dispositivo principal", Value: strconv.Itoa(r.MainDevices), Short: true},
	)

	return notify.Message{
		Title:  fmt.Sprintf("Resumen de instancias · %s · %s", r.LocationID, r.GeneratedAt.Format("2006-01-02 15:04")),
		Body:   body.String(),
		Color:  color,
		Fields: fields,
	}
}

// Runner builds and sends digests, once or on a schedule.
type Runner struct {
	Lister     Lister
	Senders    []notify.Sender
	LocationID string
	Schedule   string // 5-field cron expression
	Now        func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RunOnce builds and sends one digest. It reports false when the location
// had nothing to report.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	if r.LocationID == "" {
		return false, fmt.Errorf("digest: location is required")
	}
	rep, err := Build(ctx, r.Lister, r.LocationID, r.now())
	if err != nil {
		return false, err
	}
	if rep == nil {
		log.Printf("digest: %s has no instances, skipping", r.LocationID)
		return false, nil
	}
	if err := notify.Broadcast(ctx, r.Senders, Format(rep)); err != nil {
		return false, fmt.Errorf("digest: send: %w", err)
	}
	return true, nil
}

// Run fires RunOnce on every schedule tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := ValidSchedule(r.Schedule); err != nil {
		return fmt.Errorf("digest: schedule %q: %w", r.Schedule, err)
	}

	timer := time.NewTimer(nextCronDuration(r.Schedule, r.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if sent, err := r.RunOnce(ctx); err != nil {
				log.Printf("digest: %v", err)
			} else if sent {
				log.Printf("digest: sent summary for %s", r.LocationID)
			}
			timer.Reset(nextCronDuration(r.Schedule, r.now()))
		}
	}
}
