package server

import (
	"sync"
	"time"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/types"
)

// ConnectionInfo holds metadata about one federate session.
type ConnectionInfo struct {
	SessionID    string
	RemoteAddr   string
	Federation   string               // Empty until the session joins
	Federate     types.FederateHandle // Zero until the session joins
	ConnectedAt  time.Time
	LastActive   time.Time
	RequestCount int64
}

// ConnectionManager tracks open sessions and their lifecycle.
type ConnectionManager interface {
	OnConnect(sessionID, remoteAddr string)
	OnDisconnect(sessionID string)

	// OnJoin records the federation and federate a session joined as.
	OnJoin(sessionID, federation string, federate types.FederateHandle)

	// OnRequest updates activity for a session.
	OnRequest(sessionID string)

	GetActiveConnections() int

	// GetAllConnectionInfo returns a snapshot of all sessions.
	GetAllConnectionInfo() map[string]ConnectionInfo
}

type connectionManager struct {
	mu sync.RWMutex

	connections map[string]*ConnectionInfo

	metrics ServerMetrics
	logger  logger.Logger
	now     func() time.Time
}

// NewConnectionManager returns a ConnectionManager. A nil now uses time.Now.
func NewConnectionManager(metrics ServerMetrics, logger logger.Logger, now func() time.Time) ConnectionManager {
	if now == nil {
		now = time.Now
	}
	return &connectionManager{
		connections: make(map[string]*ConnectionInfo),
		metrics:     metrics,
		logger:      logger.WithComponent("connection-manager"),
		now:         now,
	}
}

func (cm *connectionManager) OnConnect(sessionID, remoteAddr string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[sessionID]; exists {
		cm.logger.Warnw("Session already registered", "session_id", sessionID)
		return
	}

	now := cm.now()
	cm.connections[sessionID] = &ConnectionInfo{
		SessionID:   sessionID,
		RemoteAddr:  remoteAddr,
		ConnectedAt: now,
		LastActive:  now,
	}
	total := len(cm.connections)
	if cm.metrics != nil {
		cm.metrics.SetActiveConnections(total)
	}
	cm.logger.Debugw("New federate session", "session_id", sessionID, "remote_addr", remoteAddr, "total_connections", total)
}

func (cm *connectionManager) OnDisconnect(sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[sessionID]; !exists {
		return
	}
	delete(cm.connections, sessionID)
	if cm.metrics != nil {
		cm.metrics.SetActiveConnections(len(cm.connections))
	}
	cm.logger.Debugw("Federate session closed", "session_id", sessionID, "total_connections", len(cm.connections))
}

func (cm *connectionManager) OnJoin(sessionID, federation string, federate types.FederateHandle) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, exists := cm.connections[sessionID]
	if !exists {
		cm.logger.Debugw("Join recorded for unknown session", "session_id", sessionID)
		return
	}
	conn.Federation = federation
	conn.Federate = federate
}

func (cm *connectionManager) OnRequest(sessionID string) {
	now := cm.now()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, exists := cm.connections[sessionID]
	if !exists {
		cm.logger.Debugw("Received request for unknown session", "session_id", sessionID)
		return
	}
	conn.LastActive = now
	conn.RequestCount++
}

func (cm *connectionManager) GetActiveConnections() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

func (cm *connectionManager) GetAllConnectionInfo() map[string]ConnectionInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	infos := make(map[string]ConnectionInfo, len(cm.connections))
	for id, info := range cm.connections {
		infos[id] = *info
	}
	return infos
}
