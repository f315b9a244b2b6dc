package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plc-diagram/backend/internal/diagram"
	"github.com/plc-diagram/backend/internal/extract"
	"github.com/plc-diagram/backend/internal/models"
	"github.com/plc-diagram/backend/internal/storage"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion.
const MaxSessions = 10

// SessionKeepAliveWindow is how long to keep sessions that are actively being used.
const SessionKeepAliveWindow = 5 * time.Minute

// generateStages is how many progress messages one pipeline run emits;
// used to scale the 10-90% progress band.
const generateStages = 7

// Manager handles active diagram generation sessions. Each run is isolated
// in its own goroutine with no shared pipeline state across runs.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	cache    *storage.ResultCache  // optional
	history  *storage.HistoryStore // optional
}

// SessionState holds the session metadata and, once complete, the result.
type SessionState struct {
	Session      *models.DiagramSession
	Result       *models.DiagramResult
	LastAccessed time.Time
}

// GenerateRequest describes one generation run.
type GenerateRequest struct {
	FileID   string
	FilePath string
	FileName string

	TagName           string
	Grammar           diagram.Grammar
	Profile           extract.Profile
	AllowDefaultNames bool
}

// NewManager creates a new session manager. Cache and history are optional;
// nil disables them.
func NewManager(cache *storage.ResultCache, history *storage.HistoryStore) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		cache:    cache,
		history:  history,
	}
}

// Start begins the generation process for a file.
func (m *Manager) Start(req GenerateRequest) (*models.DiagramSession, error) {
	if req.FilePath == "" {
		return nil, fmt.Errorf("missing file path")
	}
	if req.Grammar == "" {
		req.Grammar = diagram.GrammarFlowchart
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	sess := models.NewDiagramSession(sessionID, req.FileID)
	sess.Status = models.SessionStatusGenerating

	state := &SessionState{
		Session:      sess,
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	m.mu.Unlock()

	go m.runGenerate(sessionID, req)

	return sess, nil
}

func (m *Manager) runGenerate(sessionID string, req GenerateRequest) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Generate %s] PANIC recovered: %v\n", shortID(sessionID), r)
			m.failSession(sessionID, "GENERATION_FAILED", fmt.Sprintf("generation panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Generate %s] Starting generation for %s\n", shortID(sessionID), req.FilePath)

	if m.cache != nil {
		if result, ok := m.cache.Get(req.FileID, string(req.Grammar), req.TagName); ok {
			fmt.Printf("[Generate %s] Serving cached result\n", shortID(sessionID))
			m.completeSession(sessionID, result, time.Since(start), true)
			return
		}
	}

	stage := 0
	progress := func(msg string) {
		stage++
		pct := 10.0 + float64(stage)*80.0/float64(generateStages)
		if pct > 89.9 {
			pct = 89.9
		}
		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = pct
			state.Session.Stage = msg
		}
		m.mu.Unlock()
		fmt.Printf("[Generate %s] %s\n", shortID(sessionID), msg)
	}

	result, err := extract.Generate(extract.Options{
		InputPath:         req.FilePath,
		TagName:           req.TagName,
		Grammar:           req.Grammar,
		Profile:           req.Profile,
		AllowDefaultNames: req.AllowDefaultNames,
		Progress:          progress,
	})
	if err != nil {
		fmt.Printf("[Generate %s] ERROR: %v\n", shortID(sessionID), err)
		m.failSession(sessionID, extract.ErrorCode(err), err.Error())
		return
	}

	elapsed := time.Since(start)
	fmt.Printf("[Generate %s] Complete: %d states, %d transitions in %dms\n",
		shortID(sessionID), len(result.States), result.TransitionCount, elapsed.Milliseconds())

	if m.cache != nil {
		if err := m.cache.Put(req.FileID, string(req.Grammar), req.TagName, result); err != nil {
			fmt.Printf("[Generate %s] Warning: failed to cache result: %v\n", shortID(sessionID), err)
		}
	}
	if m.history != nil {
		rec := &models.GenerationRecord{
			FileID:          req.FileID,
			FileName:        req.FileName,
			Program:         result.Program,
			Routine:         result.Routine,
			Tag:             result.Tag,
			Grammar:         result.Grammar,
			StateCount:      len(result.States),
			TransitionCount: result.TransitionCount,
			DurationMs:      elapsed.Milliseconds(),
		}
		if err := m.history.Record(rec); err != nil {
			fmt.Printf("[Generate %s] Warning: failed to record history: %v\n", shortID(sessionID), err)
		}
	}

	m.completeSession(sessionID, result, elapsed, false)
}

func (m *Manager) completeSession(sessionID string, result *models.DiagramResult, elapsed time.Duration, fromCache bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Result = result
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.StateCount = len(result.States)
	state.Session.TransitionCount = result.TransitionCount
	state.Session.ProcessingTimeMs = elapsed.Milliseconds()
	state.Session.Warnings = result.Warnings
	state.Session.FromCache = fromCache
}

func (m *Manager) failSession(sessionID, code, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.ErrorCode = code
	state.Session.Error = reason
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(id string) (*models.DiagramSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// GetResult returns a completed session's result.
func (m *Manager) GetResult(id string) (*models.DiagramResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Result == nil {
		return nil, false
	}
	return state.Result, true
}

// TouchSession updates the LastAccessed timestamp for a session so active
// viewers keep it alive.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteForFile drops every session and cached result tied to a file.
// Called when the upload itself is deleted.
func (m *Manager) DeleteForFile(fileID string) {
	m.mu.Lock()
	for id, state := range m.sessions {
		if state.Session.FileID == fileID {
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if m.cache != nil {
		m.cache.Invalidate(fileID)
	}
}

// CleanupOldSessions removes completed/error sessions older than maxAge,
// keeping ones accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Session.Status != models.SessionStatusComplete &&
			state.Session.Status != models.SessionStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s\n", shortID(id))
		}
	}
}

// cleanupOldSessionsIfNeeded removes finished sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	deleted := 0
	for id, state := range m.sessions {
		if deleted >= toFree {
			break
		}
		if state.Session.Status == models.SessionStatusComplete ||
			state.Session.Status == models.SessionStatusError {
			delete(m.sessions, id)
			deleted++
			fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", shortID(id))
		}
	}
}

// shortID safely truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
