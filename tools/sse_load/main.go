// Command sse_load opens many subscribers on the dashboard state stream and
// reports how many events of each kind they received.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// tally counts stream events by name.
type tally struct {
	mu     sync.Mutex
	byName map[string]int64
}

func newTally() *tally {
	return &tally{byName: make(map[string]int64)}
}

// observe records line when it names an event. Heartbeats and data lines are ignored.
func (t *tally) observe(line string) {
	line = strings.TrimRight(line, "\r\n")
	name, ok := strings.CutPrefix(line, "event: ")
	if !ok || name == "" {
		return
	}
	t.mu.Lock()
	t.byName[name]++
	t.mu.Unlock()
}

func (t *tally) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", n, t.byName[n]))
	}
	return strings.Join(parts, " ")
}

type loadTest struct {
	url         string
	connections int
	rampUp      time.Duration
	client      *http.Client
	logger      *zap.Logger

	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	events      *tally
}

func (l *loadTest) subscribe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		l.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := l.client.Do(req)
	if err != nil {
		l.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		l.connectErrs.Add(1)
		return
	}

	l.connected.Add(1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				l.streamErrs.Add(1)
			}
			return
		}
		l.events.observe(line)
	}
}

func (l *loadTest) run(ctx context.Context) {
	var interval time.Duration
	if l.rampUp > 0 {
		interval = l.rampUp / time.Duration(l.connections)
	}

	var wg sync.WaitGroup
	for i := 0; i < l.connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.subscribe(ctx)
		}()
	}
	wg.Wait()
}

func (l *loadTest) report(elapsed time.Duration) {
	l.logger.Info("status",
		zap.Int64("connected", l.connected.Load()),
		zap.Int64("connect_errs", l.connectErrs.Load()),
		zap.Int64("stream_errs", l.streamErrs.Load()),
		zap.String("events", l.events.String()),
		zap.Duration("elapsed", elapsed.Truncate(time.Second)))
}

func main() {
	var (
		targetURL    string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/state/stream", "state stream URL")
	flag.IntVar(&connections, "conns", 200, "number of concurrent subscribers")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", time.Second, "spread subscriber starts across this window")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	lt := &loadTest{
		url:         targetURL,
		connections: connections,
		rampUp:      rampUp,
		logger:      logger,
		events:      newTally(),
		client: &http.Client{Transport: &http.Transport{
			MaxConnsPerHost:     connections + 10,
			MaxIdleConnsPerHost: connections + 10,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		}},
	}

	logger.Info("starting state stream load",
		zap.String("url", targetURL), zap.Int("conns", connections), zap.Duration("dur", testDuration))

	start := time.Now()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lt.report(time.Since(start))
			}
		}
	}()

	lt.run(ctx)
	lt.report(time.Since(start))

	if lt.connected.Load() == 0 {
		os.Exit(1)
	}
}
