package multiplayer

import (
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	WaitTimeout   time.Duration // How long a player may wait at the barrier
	CleanupPeriod time.Duration // How often expired waiters are released
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		WaitTimeout:   15 * time.Second,
		CleanupPeriod: 5 * time.Second,
	}
}

// group is one barrier. currentLevel is the level the group is waiting on;
// it starts at 0 so the first report always opens a new barrier.
type group struct {
	id           GroupID
	members      map[SessionID]SessionHandle
	currentLevel int
	completed    map[SessionID]struct{}
	waiters      map[SessionID]time.Time // session -> waiting since
}

func newGroup(id GroupID) *group {
	return &group{
		id:        id,
		members:   make(map[SessionID]SessionHandle),
		completed: make(map[SessionID]struct{}),
		waiters:   make(map[SessionID]time.Time),
	}
}

func (g *group) allCompleted() bool {
	if len(g.completed) == 0 {
		return false
	}
	for id := range g.members {
		if _, ok := g.completed[id]; !ok {
			return false
		}
	}
	return true
}

// Coordinator manages groups and their level-completion barriers.
type Coordinator struct {
	config      CoordinatorConfig
	sessions    *SessionRegistry
	resultSaver LevelResultSaver // Optional, can be nil
	logger      *log.Logger
	now         func() time.Time

	mu           sync.RWMutex
	groups       map[GroupID]*group
	sessionGroup map[SessionID]GroupID

	// Message channel for async processing
	msgChan  chan CoordinatorMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a new coordinator. A nil logger discards output.
func NewCoordinator(cfg CoordinatorConfig, sessions *SessionRegistry, logger *log.Logger) *Coordinator {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = DefaultCoordinatorConfig().CleanupPeriod
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Coordinator{
		config:       cfg,
		sessions:     sessions,
		logger:       logger,
		now:          time.Now,
		groups:       make(map[GroupID]*group),
		sessionGroup: make(map[SessionID]GroupID),
		msgChan:      make(chan CoordinatorMessage, 256),
		done:         make(chan struct{}),
	}
}

// SetResultSaver sets the optional result saver.
func (c *Coordinator) SetResultSaver(saver LevelResultSaver) {
	c.resultSaver = saver
}

// Start begins the coordinator's background processing.
func (c *Coordinator) Start() {
	go c.processMessages()
	go c.cleanupLoop()
}

// Stop shuts down the coordinator.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Send sends a message to the coordinator for async processing.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	select {
	case c.msgChan <- msg:
	case <-c.done:
	}
}

// processMessages handles incoming messages.
func (c *Coordinator) processMessages() {
	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	switch m := msg.(type) {
	case JoinGroupMsg:
		c.handleJoinGroup(m)
	case LeaveGroupMsg:
		c.handleLeave(m.SessionID)
	case LevelCompleteMsg:
		c.handleLevelComplete(m)
	case SessionDisconnectedMsg:
		c.handleLeave(m.SessionID)
	}
}

func (c *Coordinator) handleJoinGroup(msg JoinGroupMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		return
	}
	if msg.Group == "" {
		session.Send(ErrorEvent{Message: "Group name required"})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if current, in := c.sessionGroup[msg.SessionID]; in {
		if current == msg.Group {
			g := c.groups[current]
			session.Send(GroupJoinedEvent{Group: g.id, CurrentLevel: g.currentLevel, Members: len(g.members)})
			return
		}
		c.removeLocked(msg.SessionID)
	}

	g, exists := c.groups[msg.Group]
	if !exists {
		g = newGroup(msg.Group)
		c.groups[msg.Group] = g
	}
	g.members[msg.SessionID] = session
	c.sessionGroup[msg.SessionID] = msg.Group

	c.logger.Info("player joined group", "session", msg.SessionID, "group", msg.Group, "members", len(g.members))
	session.Send(GroupJoinedEvent{Group: g.id, CurrentLevel: g.currentLevel, Members: len(g.members)})
}

func (c *Coordinator) handleLevelComplete(msg LevelCompleteMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	gid, in := c.sessionGroup[msg.SessionID]
	if !in {
		session.Send(ErrorEvent{Message: "Not in a group"})
		return
	}
	g := c.groups[gid]

	if msg.Level < g.currentLevel {
		session.Send(LevelResultEvent{
			Level:        msg.Level,
			AllCompleted: true,
			CurrentLevel: g.currentLevel,
			Reason:       ReasonAlreadyAdvanced,
		})
		return
	}

	if msg.Level > g.currentLevel {
		// Anyone still waiting on the old level is released without success.
		c.releaseLocked(g, slices.Collect(maps.Keys(g.waiters)), g.currentLevel, false, ReasonSuperseded)
		g.currentLevel = msg.Level
		clear(g.completed)
	}

	g.completed[msg.SessionID] = struct{}{}
	if _, waiting := g.waiters[msg.SessionID]; !waiting {
		g.waiters[msg.SessionID] = c.now()
	}
	c.logger.Debug("level completion reported", "session", msg.SessionID, "group", gid,
		"level", msg.Level, "completed", len(g.completed), "members", len(g.members))

	c.evaluateLocked(g)
}

// evaluateLocked opens the barrier if every member has completed, otherwise
// refreshes the waiters' progress. Must be called with lock held.
func (c *Coordinator) evaluateLocked(g *group) {
	if g.allCompleted() {
		level := g.currentLevel
		g.currentLevel = level + 1
		c.releaseLocked(g, slices.Collect(maps.Keys(g.waiters)), level, true, ReasonAllCompleted)
		clear(g.completed)
		c.logger.Info("group advanced", "group", g.id, "level", level, "next", g.currentLevel)
		return
	}

	progress := LevelWaitingEvent{Level: g.currentLevel, Completed: len(g.completed), Members: len(g.members)}
	for id := range g.waiters {
		if s, ok := g.members[id]; ok {
			s.Send(progress)
		}
	}
}

// releaseLocked sends a result to the given waiters, removes them and
// records the release. Must be called with lock held.
func (c *Coordinator) releaseLocked(g *group, ids []SessionID, level int, all bool, reason ResultReason) {
	if len(ids) == 0 {
		return
	}
	slices.Sort(ids)

	now := c.now()
	var waited time.Duration
	players := make([]string, 0, len(ids))
	for _, id := range ids {
		if since, ok := g.waiters[id]; ok {
			waited = max(waited, now.Sub(since))
		}
		delete(g.waiters, id)
		players = append(players, string(id))
		if s, ok := g.members[id]; ok {
			s.Send(LevelResultEvent{Level: level, AllCompleted: all, CurrentLevel: g.currentLevel, Reason: reason})
		}
	}

	if c.resultSaver != nil {
		data := LevelResultData{
			GroupID:      string(g.id),
			Level:        level,
			Players:      players,
			AllCompleted: all,
			Reason:       reason.String(),
			Waited:       waited,
		}
		// Best effort save, don't block on error
		go func() {
			if err := c.resultSaver.SaveLevelResult(data); err != nil {
				c.logger.Warn("cannot save level result", "group", data.GroupID, "level", data.Level, "error", err)
			}
		}()
	}
}

func (c *Coordinator) handleLeave(id SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// removeLocked drops a session from its group and re-evaluates the barrier
// for the remaining members. Must be called with lock held.
func (c *Coordinator) removeLocked(id SessionID) {
	gid, in := c.sessionGroup[id]
	if !in {
		return
	}
	delete(c.sessionGroup, id)
	g := c.groups[gid]

	if _, waiting := g.waiters[id]; waiting {
		c.releaseLocked(g, []SessionID{id}, g.currentLevel, false, ReasonLeft)
	}
	delete(g.members, id)
	delete(g.completed, id)

	if len(g.members) == 0 {
		delete(c.groups, gid)
		c.logger.Info("group closed", "group", gid)
		return
	}
	c.logger.Info("player left group", "session", id, "group", gid, "members", len(g.members))
	c.evaluateLocked(g)
}

func (c *Coordinator) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.releaseExpiredWaiters()
		case <-c.done:
			return
		}
	}
}

// releaseExpiredWaiters releases players that waited longer than WaitTimeout.
func (c *Coordinator) releaseExpiredWaiters() {
	if c.config.WaitTimeout <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, g := range c.groups {
		var expired []SessionID
		for id, since := range g.waiters {
			if now.Sub(since) > c.config.WaitTimeout {
				expired = append(expired, id)
			}
		}
		if len(expired) > 0 {
			c.logger.Warn("releasing expired waiters", "group", g.id, "level", g.currentLevel, "count", len(expired))
			c.releaseLocked(g, expired, g.currentLevel, false, ReasonTimeout)
		}
	}
}

// Group returns a snapshot of a group (for testing/debug).
func (c *Coordinator) Group(id GroupID) (GroupInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[id]
	if !ok {
		return GroupInfo{}, false
	}
	return GroupInfo{
		ID:           g.id,
		CurrentLevel: g.currentLevel,
		Members:      len(g.members),
		Completed:    len(g.completed),
		Waiting:      len(g.waiters),
	}, true
}

// GroupCount returns the number of active groups.
func (c *Coordinator) GroupCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}
