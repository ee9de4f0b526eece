// Package bot runs a character through its configured runs, game after game,
// and keeps the history of what happened.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jordanella.com/botty-go/internal/char"
	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/database"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/input"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/monitor"
	"jordanella.com/botty-go/internal/pather"
)

// RunCS is the built-in run that takes the character to the chaos sanctuary
const RunCS = "run_cs"

// ErrTooManyFailures ends a session whose runs keep failing
var ErrTooManyFailures = errors.New("too many consecutive failed runs")

// ErrAlreadyRunning is returned by Run while another Run is active
var ErrAlreadyRunning = errors.New("session already running")

// Deps are the collaborators of a session. DB and Bus are optional.
type Deps struct {
	Config    *config.Config
	Char      char.Behavior
	Pather    *pather.Pather
	Humanizer *input.Humanizer
	DB        *database.DB
	Bus       events.Publisher
	Logger    *logging.Logger
	// Health ends the current game when the bot stops making progress or
	// the screen stops answering. Optional.
	Health *monitor.HealthChecker
}

// Options tune a session
type Options struct {
	Name     string // recorded with the session, defaults to general.name
	MaxGames int    // 0 plays until stopped
}

// Session is one synchronous perception-action loop for one character
type Session struct {
	cfg       *config.Config
	char      char.Behavior
	pather    *pather.Pather
	humanizer *input.Humanizer
	clock     input.Clock
	bus       events.Publisher
	logger    *logging.Logger
	opts      Options

	watchdog   *monitor.Watchdog
	health     *monitor.HealthChecker
	controller *Controller
	state      *State
	history    *history
}

// NewSession checks the run order against the known runs and wires the
// pather to the history
func NewSession(deps Deps, opts Options) (*Session, error) {
	if deps.Config == nil || deps.Char == nil || deps.Pather == nil || deps.Humanizer == nil {
		return nil, monitor.NewConfigError("session", "", "config, character, pather and humanizer are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	var bus events.Publisher = events.NopPublisher{}
	if deps.Bus != nil {
		bus = deps.Bus
	}
	if opts.Name == "" {
		opts.Name = deps.Config.General.Name
	}

	s := &Session{
		cfg:        deps.Config,
		char:       deps.Char,
		pather:     deps.Pather,
		humanizer:  deps.Humanizer,
		clock:      deps.Humanizer.Clock(),
		bus:        bus,
		logger:     logger,
		opts:       opts,
		watchdog:   monitor.NewWatchdog(deps.Config.General.MaxGameLength),
		health:     deps.Health,
		controller: NewController(),
		state:      &State{},
		history:    &history{db: deps.DB, logger: logger},
	}
	if err := s.validateRuns(); err != nil {
		return nil, err
	}

	deps.Pather.WithPublisher(bus)
	deps.Pather.Observe(s.observeNode)
	if s.health != nil {
		s.health.WithUnhealthyCallback(s.unhealthy)
	}
	return s, nil
}

func (s *Session) observeNode(r pather.NodeResult) {
	s.recordActivity()
	s.history.traversal(r)
}

func (s *Session) recordActivity() {
	if s.health != nil {
		s.health.RecordActivity()
	}
}

// unhealthy trips the watchdog of the current game, if any
func (s *Session) unhealthy(reason string, err error) {
	s.logger.Warnf("Health check failed (%s): %v", reason, err)
	s.watchdog.Trip(fmt.Sprintf("%s: %v", reason, err))
}

func (s *Session) validateRuns() error {
	if len(s.cfg.RoutesOrder) == 0 {
		return monitor.NewConfigError("routes", "order", "no runs configured")
	}
	for _, name := range s.cfg.RoutesOrder {
		if !s.knownRun(name) {
			return monitor.NewConfigError("routes", "order", fmt.Sprintf("unknown run %q", name))
		}
	}
	return nil
}

func (s *Session) knownRun(name string) bool {
	if name == RunCS {
		return true
	}
	if _, ok := s.pather.Catalog().Route(name); ok {
		return true
	}
	return s.pather.HasPath(name)
}

// Controller returns the start, pause and stop controls
func (s *Session) Controller() *Controller {
	return s.controller
}

// Stop cancels a running session
func (s *Session) Stop() bool {
	return s.controller.Stop()
}

// SetMaxGames limits the next Run to n games, 0 for no limit. It has no
// effect on a running session.
func (s *Session) SetMaxGames(n int) {
	if s.controller.IsRunning() || n < 0 {
		return
	}
	s.opts.MaxGames = n
}

// Stats returns a snapshot of the session statistics
func (s *Session) Stats() Stats {
	return s.state.Snapshot()
}

// Run plays games until ctx is cancelled, Stop is called, MaxGames is
// reached or an error ends the session. A stop requested through Stop or
// the parent context returns nil.
func (s *Session) Run(parent context.Context) error {
	ctx, ok := s.controller.start(parent)
	if !ok {
		return ErrAlreadyRunning
	}

	sessionID := s.history.startSession(s.opts.Name, s.cfg.Char.Type)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.state.reset(sessionID, s.clock.Now())
	s.bus.Publish(events.NewSessionStartedEvent(sessionID, s.cfg.RoutesOrder))
	s.logger.Infof("Session %s started: %s with runs %v", sessionID, s.cfg.Char.Type, s.cfg.RoutesOrder)

	if s.health != nil {
		s.health.Start(ctx)
	}
	err := s.loop(ctx)
	if s.health != nil {
		s.health.Stop()
	}

	final := StateCompleted
	reason := "completed"
	switch {
	case err == nil:
	case monitor.Classify(err) == monitor.ErrorCancelled && (s.controller.StopRequested() || parent.Err() != nil):
		final, reason, err = StateStopped, "stopped", nil
	default:
		final, reason = StateStopped, err.Error()
		if errors.Is(err, ErrTooManyFailures) {
			s.history.logError(err)
		}
		s.logger.Error("Session ended", err)
	}

	stats := s.state.Snapshot()
	s.history.stopSession(reason, stats.Games)
	s.bus.Publish(events.NewSessionStoppedEvent(sessionID, reason, stats.Games))
	s.logger.Infof("Session %s %s after %d games (%d/%d runs failed) in %s",
		sessionID, reason, stats.Games, stats.FailedRuns, stats.Runs, char.HMS(input.Since(s.clock, stats.StartedAt)))
	s.controller.finish(final)
	return err
}

func (s *Session) loop(ctx context.Context) error {
	for game := 1; s.opts.MaxGames == 0 || game <= s.opts.MaxGames; game++ {
		if err := s.controller.waitWhilePaused(ctx); err != nil {
			return err
		}
		if err := s.playGame(ctx, game); err != nil {
			return err
		}
		s.state.gameDone()
	}
	return nil
}

// runOrder returns the configured runs, shuffled when randomize_runs is set
func (s *Session) runOrder() []string {
	order := append([]string(nil), s.cfg.RoutesOrder...)
	if s.cfg.General.RandomizeRuns {
		s.humanizer.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

func (s *Session) playGame(ctx context.Context, game int) error {
	order := s.runOrder()
	s.logger.Infof("Starting game %d with runs %v", game, order)
	start := s.clock.Now()

	gameCtx := s.watchdog.Arm(ctx)
	defer s.watchdog.Disarm()

	for i, name := range order {
		if err := s.controller.waitWhilePaused(ctx); err != nil {
			return err
		}

		ok, err := s.doRun(gameCtx, game, name, i == 0 || s.cfg.Char.PreBuffEveryRun)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !ok {
			reason := "run failed"
			if err != nil {
				reason = err.Error()
			}
			streak := s.state.runFailed(name, reason)
			if err != nil && monitor.ActionFor(err) == monitor.ActionStop {
				return err
			}
			if streak > s.cfg.General.MaxConsecutiveFails {
				return fmt.Errorf("%w: %d in a row", ErrTooManyFailures, streak)
			}
		} else {
			s.state.runSucceeded(name)
		}

		if tripped, _ := s.watchdog.Tripped(); tripped {
			break
		}
	}

	s.logger.Infof("Game %d finished in %s", game, char.HMS(input.Since(s.clock, start)))
	return nil
}

// doRun executes one named run and records it. ok is false whenever the
// run did not complete; err says why when it was not a plain miss.
func (s *Session) doRun(ctx context.Context, game int, name string, preBuff bool) (bool, error) {
	runID := uuid.NewString()
	s.history.startRun(runID, game, name)
	s.bus.Publish(events.NewRunStartedEvent(runID, name))
	s.logger.Infof("Run %s (%s) started", name, runID)
	s.recordActivity()
	start := s.clock.Now()

	ok, err := s.execute(ctx, name, preBuff)
	if tripped, why := s.watchdog.Tripped(); tripped {
		ok, err = false, fmt.Errorf("%w: %s", monitor.ErrTimeout, why)
	}
	if err != nil {
		ok = false
	}

	duration := input.Since(s.clock, start)
	if ok {
		s.history.finishRun(runID, "")
		s.bus.Publish(events.NewRunCompletedEvent(runID, name, duration))
		s.logger.Infof("Run %s completed in %s", name, char.HMS(duration))
		return true, nil
	}

	reason := "route failed"
	if err != nil {
		reason = err.Error()
		s.history.logError(err)
		s.logger.Warnf("Run %s failed (%s): %v", name, monitor.ActionFor(err), err)
	} else {
		s.logger.Warnf("Run %s failed", name)
	}
	s.history.finishRun(runID, reason)
	s.bus.Publish(events.NewRunFailedEvent(runID, name, reason))
	return false, err
}

func (s *Session) execute(ctx context.Context, name string, preBuff bool) (bool, error) {
	if preBuff {
		if err := s.char.PreBuff(ctx); err != nil {
			return false, err
		}
	}

	if name == RunCS {
		return s.char.RunToCS(ctx)
	}

	if err := s.char.PreMove(ctx); err != nil {
		return false, err
	}
	if _, ok := s.pather.Catalog().Route(name); ok {
		return s.pather.TraverseRoute(ctx, name, s.char)
	}
	return s.pather.TraversePath(ctx, name, s.char)
}
