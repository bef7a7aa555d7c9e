package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilal/nocturne-agent/internal/config"
	"github.com/go-ping/ping"
	"github.com/rs/zerolog/log"
)

var errNoReply = errors.New("no echo reply")

// Pinger measures round-trip latency to a single target.
type Pinger struct {
	target     string
	timeout    time.Duration
	privileged bool

	roundTrip func(ctx context.Context) (time.Duration, error)
}

func NewPinger(cfg config.PingConfig) *Pinger {
	p := &Pinger{
		target:     cfg.Target,
		timeout:    cfg.Timeout,
		privileged: cfg.Privileged,
	}
	if p.timeout <= 0 {
		p.timeout = 2 * time.Second
	}
	p.roundTrip = p.echo
	return p
}

// Latency returns the round trip in whole milliseconds.
func (p *Pinger) Latency(ctx context.Context) (int, error) {
	rtt, err := p.roundTrip(ctx)
	if err != nil {
		log.Debug().Err(err).Str("target", p.target).Msg("ping failed")
		return 0, fmt.Errorf("ping %s: %w", p.target, err)
	}
	return int(rtt.Milliseconds()), nil
}

func (p *Pinger) echo(ctx context.Context) (time.Duration, error) {
	pinger, err := ping.NewPinger(p.target)
	if err != nil {
		return 0, err
	}
	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.privileged)

	stop := context.AfterFunc(ctx, pinger.Stop)
	defer stop()

	if err := pinger.Run(); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errNoReply
	}
	return stats.AvgRtt, nil
}
