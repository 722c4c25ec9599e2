package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

const namespace = "giveaways"

// Collector holds the Prometheus metrics fed by the manager event stream.
type Collector struct {
	// Lifecycle
	GiveawaysCreated  prometheus.Counter
	GiveawaysPaused   prometheus.Counter
	GiveawaysResumed  prometheus.Counter
	GiveawaysEnded    *prometheus.CounterVec
	GiveawaysRerolled prometheus.Counter
	GiveawaysDeleted  prometheus.Counter

	// Entries
	EntriesAdded    prometheus.Counter
	EntriesRemoved  prometheus.Counter
	WinnersSelected prometheus.Counter

	Errors *prometheus.CounterVec
}

// New registers the collector metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		GiveawaysCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Total number of giveaways created",
		}),
		GiveawaysPaused: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paused_total",
			Help:      "Total number of giveaway pauses",
		}),
		GiveawaysResumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resumed_total",
			Help:      "Total number of giveaway resumes",
		}),
		GiveawaysEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ended_total",
				Help:      "Total number of ended giveaways by outcome",
			},
			[]string{"outcome"},
		),
		GiveawaysRerolled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerolled_total",
			Help:      "Total number of rerolls",
		}),
		GiveawaysDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_total",
			Help:      "Total number of deleted giveaways",
		}),
		EntriesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_added_total",
			Help:      "Total number of entries added through the join button or API",
		}),
		EntriesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_removed_total",
			Help:      "Total number of entries withdrawn",
		}),
		WinnersSelected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winners_selected_total",
			Help:      "Total number of winners drawn by ends and rerolls",
		}),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of error events by code",
			},
			[]string{"code"},
		),
	}
}

// Observe records one manager event. It is meant to be passed to
// Manager.Subscribe.
func (c *Collector) Observe(e giveaway.Event) {
	switch e.Kind {
	case giveaway.EventGiveawayCreate:
		c.GiveawaysCreated.Inc()
	case giveaway.EventGiveawayPause:
		c.GiveawaysPaused.Inc()
	case giveaway.EventGiveawayResume:
		c.GiveawaysResumed.Inc()
	case giveaway.EventGiveawayEnd:
		outcome := "no_winner"
		if e.Entries != nil && len(e.Entries.WinnerUserIDs) > 0 {
			outcome = "winners"
			c.WinnersSelected.Add(float64(len(e.Entries.WinnerUserIDs)))
		}
		c.GiveawaysEnded.WithLabelValues(outcome).Inc()
	case giveaway.EventGiveawayReroll:
		c.GiveawaysRerolled.Inc()
		if e.Entries != nil {
			c.WinnersSelected.Add(float64(len(e.Entries.WinnerUserIDs)))
		}
	case giveaway.EventGiveawayDelete:
		c.GiveawaysDeleted.Inc()
	case giveaway.EventEntryAdd:
		c.EntriesAdded.Inc()
	case giveaway.EventEntryRemove:
		c.EntriesRemoved.Inc()
	case giveaway.EventError:
		c.Errors.WithLabelValues(string(apperrors.CodeOf(e.Err))).Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
