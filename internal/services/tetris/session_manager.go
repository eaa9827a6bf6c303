package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket" // WebSocketライブラリのインポート
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound は指定されたルームが存在しない場合に返されます。
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionOwnedByOther は他のユーザーが所有するルームに接続しようとした場合に返されます。
	ErrSessionOwnedByOther = errors.New("session is owned by another user")
	// ErrManagerStopped はシャットダウン後に操作しようとした場合に返されます。
	ErrManagerStopped = errors.New("session manager is stopped")
)

// SessionStatus はゲームセッションの進行状況です。
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"  // 作成済み、クライアント未接続
	StatusPlaying  SessionStatus = "playing"  // 自動落下中
	StatusFinished SessionStatus = "finished" // ゲームオーバー。resetで再開できる
)

// SessionConfig はセッションごとに生成するエンジンとマネージャーの設定です。
type SessionConfig struct {
	TickInterval time.Duration
	IdleTimeout  time.Duration
	BoardRows    int
	BoardCols    int
	Picker       string
	Seed         int64
}

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID string          // このクライアントに紐づくユーザーのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	RoomID string          // このクライアントが操作しているルームのID
	closed bool
	mu     sync.Mutex
	logger *zap.Logger
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// GameSession は1人のプレイヤーが所有する1つのゲームです。
type GameSession struct {
	ID        string
	OwnerID   string
	Status    SessionStatus
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time

	engine *Engine
	mu     sync.Mutex // engine と Status を保護
}

// SessionView はHTTPレスポンス用のセッション情報です。
type SessionView struct {
	RoomID    string        `json:"room_id"`
	OwnerID   string        `json:"owner_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	State     Snapshot      `json:"state"`
}

// StateMessage はWebSocketでクライアントへ送るゲーム状態です。
type StateMessage struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"room_id"`
	Accepted bool          `json:"accepted"`
	Status   SessionStatus `json:"status"`
	State    Snapshot      `json:"state"`
}

// InputEvent はクライアントから受信した操作です。
type InputEvent struct {
	UserID string `json:"-"`
	RoomID string `json:"-"`
	Action string `json:"action"`
}

// SessionManager はすべてのアクティブなゲームセッションと接続中のクライアントを管理します。
type SessionManager struct {
	cfg         SessionConfig
	sessions    map[string]*GameSession // roomID -> GameSession
	clients     map[string]*Client      // roomID -> Client (1ルーム1接続)
	register    chan *Client
	unregister  chan *Client
	inputEvents chan InputEvent
	quit        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex // sessions と clients を保護
	logger      *zap.Logger
}

// NewSessionManager は新しい SessionManager インスタンスを作成し、そのメインイベントループをバックグラウンドで開始します。
//
// Parameters:
//
//	cfg    : ティック間隔、盤面サイズ、ピッカーなどの設定
//	logger : ロガー (nilの場合は出力しない)
//
// Returns:
//
//	*SessionManager: 初期化されたセッションマネージャーのポインタ
func NewSessionManager(cfg SessionConfig, logger *zap.Logger) *SessionManager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &SessionManager{
		cfg:         cfg,
		sessions:    make(map[string]*GameSession),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inputEvents: make(chan InputEvent, 512),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Named("session_manager"),
	}
	go sm.Run()
	return sm
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、操作入力、自動落下、放置セッションの掃除をすべてこのゴルーチンで処理します。
func (sm *SessionManager) Run() {
	defer close(sm.done)

	ticker := time.NewTicker(sm.cfg.TickInterval)
	defer ticker.Stop()
	sweeper := time.NewTicker(max(sm.cfg.IdleTimeout/2, time.Millisecond))
	defer sweeper.Stop()

	for {
		select {
		case client := <-sm.register:
			sm.handleRegister(client)

		case client := <-sm.unregister:
			sm.handleUnregister(client)

		case event := <-sm.inputEvents:
			sm.handleInput(event)

		case <-ticker.C:
			sm.tickPlaying()

		case now := <-sweeper.C:
			sm.sweepIdle(now)

		case <-sm.quit:
			sm.logger.Info("シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

func (sm *SessionManager) handleRegister(client *Client) {
	sm.mu.Lock()
	session, ok := sm.sessions[client.RoomID]
	if !ok {
		sm.mu.Unlock()
		client.SafeClose()
		sm.logger.Warn("Client registered for removed room", zap.String("room_id", client.RoomID))
		return
	}
	if old, exists := sm.clients[client.RoomID]; exists && old != client {
		sm.logger.Info("Replacing existing connection", zap.String("room_id", client.RoomID))
		old.SafeClose()
	}
	sm.clients[client.RoomID] = client
	sm.mu.Unlock()

	session.mu.Lock()
	if session.Status == StatusWaiting {
		session.engine.Reset()
		session.Status = StatusPlaying
		session.StartedAt = time.Now()
	}
	session.mu.Unlock()

	sm.logger.Info("Client registered", zap.String("user_id", client.UserID), zap.String("room_id", client.RoomID))
	sm.pushState(session, true)
}

// handleUnregister は切断したクライアントのセッションを破棄します。
// 置き換え済みの古い接続からの通知は無視します。
func (sm *SessionManager) handleUnregister(client *Client) {
	sm.mu.Lock()
	current, ok := sm.clients[client.RoomID]
	if !ok || current != client {
		sm.mu.Unlock()
		return
	}
	client.SafeClose()
	delete(sm.clients, client.RoomID)
	delete(sm.sessions, client.RoomID)
	sm.mu.Unlock()

	sm.logger.Info("Client disconnected, session removed", zap.String("user_id", client.UserID), zap.String("room_id", client.RoomID))
}

func (sm *SessionManager) handleInput(event InputEvent) {
	session, ok := sm.lookup(event.RoomID)
	if !ok {
		sm.logger.Debug("Input for non-existent room", zap.String("room_id", event.RoomID))
		return
	}

	intent, known := ParseIntent(event.Action)
	if !known {
		sm.logger.Debug("Unknown action", zap.String("room_id", event.RoomID), zap.String("action", event.Action))
		sm.pushState(session, false)
		return
	}

	session.mu.Lock()
	var accepted bool
	switch {
	case session.Status == StatusWaiting:
		accepted = false
	case intent == IntentReset:
		accepted = session.engine.ApplyIntent(intent)
		session.Status = StatusPlaying
		session.StartedAt = time.Now()
		session.EndedAt = time.Time{}
	default:
		accepted = session.engine.ApplyIntent(intent)
		sm.finishIfOver(session)
	}
	session.mu.Unlock()

	sm.pushState(session, accepted)
}

// tickPlaying はプレイ中の全セッションを1ティック進めます。
func (sm *SessionManager) tickPlaying() {
	sm.mu.RLock()
	active := make([]*GameSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		active = append(active, session)
	}
	sm.mu.RUnlock()

	for _, session := range active {
		session.mu.Lock()
		if session.Status != StatusPlaying {
			session.mu.Unlock()
			continue
		}
		session.engine.Tick()
		sm.finishIfOver(session)
		session.mu.Unlock()

		sm.pushState(session, true)
	}
}

// finishIfOver は session.mu を保持した状態で呼び出します。
func (sm *SessionManager) finishIfOver(session *GameSession) {
	if session.Status != StatusPlaying || !session.engine.IsGameOver() {
		return
	}
	session.Status = StatusFinished
	session.EndedAt = time.Now()
	sm.logger.Info("Game finished",
		zap.String("room_id", session.ID),
		zap.Int("score", session.engine.Score()),
		zap.Int("lines", session.engine.Lines()),
	)
}

// sweepIdle は一度も接続されないまま放置されたセッションを削除します。
func (sm *SessionManager) sweepIdle(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		if _, connected := sm.clients[id]; connected {
			continue
		}
		session.mu.Lock()
		idle := session.Status == StatusWaiting && now.Sub(session.CreatedAt) >= sm.cfg.IdleTimeout
		session.mu.Unlock()
		if idle {
			delete(sm.sessions, id)
			sm.logger.Info("Idle session swept", zap.String("room_id", id))
		}
	}
}

// pushState は最新の状態をルームのクライアントへ送信します。
func (sm *SessionManager) pushState(session *GameSession, accepted bool) {
	sm.mu.RLock()
	client, ok := sm.clients[session.ID]
	sm.mu.RUnlock()
	if !ok {
		return
	}

	session.mu.Lock()
	msg := StateMessage{
		Type:     "state",
		RoomID:   session.ID,
		Accepted: accepted,
		Status:   session.Status,
		State:    session.engine.Snapshot(),
	}
	session.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		sm.logger.Error("Error marshaling game state", zap.String("room_id", session.ID), zap.Error(err))
		return
	}
	if !client.SafeSend(data) {
		sm.logger.Warn("Failed to send to client (channel closed or full)", zap.String("room_id", session.ID))
	}
}

func (sm *SessionManager) lookup(roomID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[roomID]
	return session, ok
}

func (sm *SessionManager) newEngine() (*Engine, error) {
	picker, err := NewPicker(sm.cfg.Picker, NewRand(sm.cfg.Seed), sm.logger)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithTickInterval(sm.cfg.TickInterval),
		WithPicker(picker),
		WithLogger(sm.logger),
	}
	if sm.cfg.BoardRows != 0 || sm.cfg.BoardCols != 0 {
		opts = append(opts, WithBoardSize(sm.cfg.BoardRows, sm.cfg.BoardCols))
	}
	return NewEngine(opts...)
}

// CheckConfig はセッション用のエンジンを生成できるか確認します。
func (sm *SessionManager) CheckConfig() error {
	_, err := sm.newEngine()
	return err
}

// CreateSession は新しいゲームセッションを作成します。
//
// Parameters:
//
//	ownerID : ルームを所有するユーザーのID (認証無効時は空文字)
//
// Returns:
//
//	string: 作成されたルームのID
//	error : エンジンの生成に失敗した場合
func (sm *SessionManager) CreateSession(ownerID string) (string, error) {
	engine, err := sm.newEngine()
	if err != nil {
		return "", fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	session := &GameSession{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		engine:    engine,
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	sm.logger.Info("Session created", zap.String("room_id", session.ID), zap.String("owner_id", ownerID))
	return session.ID, nil
}

// GetSession は指定されたルームの現在の状態を返します。
func (sm *SessionManager) GetSession(roomID string) (SessionView, error) {
	session, ok := sm.lookup(roomID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return SessionView{
		RoomID:    session.ID,
		OwnerID:   session.OwnerID,
		Status:    session.Status,
		CreatedAt: session.CreatedAt,
		State:     session.engine.Snapshot(),
	}, nil
}

// Authorize はユーザーがルームに接続できるかを確認します。
// 所有者のいないルームには誰でも接続できます。
func (sm *SessionManager) Authorize(roomID, userID string) error {
	session, ok := sm.lookup(roomID)
	if !ok {
		return ErrSessionNotFound
	}
	if session.OwnerID != "" && session.OwnerID != userID {
		return ErrSessionOwnedByOther
	}
	return nil
}

// RegisterClient は新しいWebSocket接続をルームに登録し、読み書きのゴルーチンを開始します。
// 同じルームへの既存の接続は置き換えられます。
func (sm *SessionManager) RegisterClient(roomID, userID string, conn *websocket.Conn) error {
	if err := sm.Authorize(roomID, userID); err != nil {
		return err
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		RoomID: roomID,
		logger: sm.logger.With(zap.String("user_id", userID), zap.String("room_id", roomID)),
	}

	select {
	case sm.register <- client:
	case <-sm.quit:
		return ErrManagerStopped
	}

	go sm.readPump(client)
	go client.writePump()
	return nil
}

// readPump はクライアントからのWebSocketメッセージを読み込み、 inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Warn("WebSocket unexpected close", zap.Error(err))
			} else {
				client.logger.Debug("WebSocket closed", zap.Error(err))
			}
			return
		}

		var event InputEvent
		if err := json.Unmarshal(message, &event); err != nil || event.Action == "" {
			client.logger.Debug("Ignoring malformed input", zap.ByteString("message", message))
			continue
		}
		// 受信したメッセージの宛先は接続から決める
		event.UserID = client.UserID
		event.RoomID = client.RoomID

		select {
		case sm.inputEvents <- event:
		default:
			client.logger.Warn("Input events channel is full, dropping message")
		}
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Error writing message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// EndGameSession はセッションを削除し、接続中のクライアントを切断します。
func (sm *SessionManager) EndGameSession(roomID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[roomID]; !ok {
		return ErrSessionNotFound
	}
	if client, ok := sm.clients[roomID]; ok {
		client.SafeClose()
		delete(sm.clients, roomID)
	}
	delete(sm.sessions, roomID)
	sm.logger.Info("Session ended", zap.String("room_id", roomID))
	return nil
}

// SessionCount は現在のセッション数を返します。
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Shutdown はSessionManagerを安全にシャットダウンします
func (sm *SessionManager) Shutdown() {
	sm.stopOnce.Do(func() {
		close(sm.quit)
		<-sm.done

		sm.mu.Lock()
		for roomID, client := range sm.clients {
			client.SafeClose()
			delete(sm.clients, roomID)
		}
		sm.sessions = make(map[string]*GameSession)
		sm.mu.Unlock()

		sm.logger.Info("シャットダウン完了")
	})
}
