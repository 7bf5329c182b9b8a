package popup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ClipTranslator/internal/app/orchestrator"
	"ClipTranslator/internal/config"
	"ClipTranslator/internal/service/clipboard"
	"ClipTranslator/internal/service/history"
)

// Сколько ждём запись одного кадра, прежде чем считать клиента мёртвым.
const writeWait = 5 * time.Second

// Controls — действия оркестратора, доступные фронтенду попапа.
type Controls interface {
	LastResult() (orchestrator.Snapshot, bool)
	Languages() (source, target string)
	ToggleLanguages() (source, target string)
}

// Server — локальный WebSocket-мост между оркестратором и попап-фронтендом.
// Транслирует события перевода подключённым клиентам и принимает от них
// команды (скопировать перевод, поменять языки, показать историю).
type Server struct {
	cfg      config.PopupConfig
	controls Controls
	clip     clipboard.Clipboard
	hist     *history.Log
	srv      *http.Server
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
	running  atomic.Bool

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte // последнее опубликованное событие; отдаётся новым клиентам
}

// client — одно подключение попапа. Мьютекс сериализует запись:
// в соединение пишут и рассылка событий, и ответы на команды.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// payload — сообщение моста. Поле type определяет, какие поля заполнены.
type payload struct {
	Type         string          `json:"type"`
	RequestID    int64           `json:"request_id,omitempty"`
	Phase        string          `json:"phase,omitempty"`
	SourceText   string          `json:"source_text,omitempty"`
	Translated   string          `json:"translated,omitempty"`
	DetectedLang string          `json:"detected_lang,omitempty"`
	SourceLang   string          `json:"source_lang,omitempty"`
	TargetLang   string          `json:"target_lang,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Error        string          `json:"error,omitempty"`
	AutoCloseMs  int64           `json:"auto_close_ms,omitempty"`
	History      []history.Entry `json:"history,omitempty"`
	At           string          `json:"at,omitempty"`
}

// action — команда от фронтенда.
type action struct {
	Action string `json:"action"` // copy | toggle | history
	N      int    `json:"n"`      // для history: сколько записей; 0 — все
}

func NewServer(cfg config.PopupConfig, controls Controls, clip clipboard.Clipboard, hist *history.Log, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:3210"
	}
	if cfg.Path == "" {
		cfg.Path = "/events"
	}
	s := &Server{
		cfg:      cfg,
		controls: controls,
		clip:     clip,
		hist:     hist,
		logger:   logger,
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			// Мост слушает только loopback, фронтенд открывается с file://,
			// поэтому Origin не проверяем.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleEvents)

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start запускает мост в отдельной горутине и немедленно возвращается.
// Реагирует на отмену контекста и завершает работу.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("попап-мост слушает", "addr", s.srv.Addr, "path", s.cfg.Path)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("попап-мост остановился с ошибкой", "error", err)
		} else {
			s.logger.Infow("попап-мост остановлен")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop инициирует graceful shutdown с использованием контекста.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	// Shutdown не трогает перехваченные соединения, закрываем их сами.
	s.mu.Lock()
	for cl := range s.clients {
		_ = cl.conn.Close()
	}
	clear(s.clients)
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("popup bridge shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.BindAddr }

// Publish рассылает событие оркестратора всем подключённым попапам и
// запоминает его для тех, кто подключится позже. Медленный или мёртвый
// клиент отключается, рассылку он не задерживает.
func (s *Server) Publish(ev orchestrator.Event) {
	b, err := json.Marshal(s.eventPayload(ev))
	if err != nil {
		s.logger.Errorw("не удалось сериализовать событие для попапа", "error", err)
		return
	}

	s.mu.Lock()
	s.last = b
	targets := make([]*client, 0, len(s.clients))
	for cl := range s.clients {
		targets = append(targets, cl)
	}
	s.mu.Unlock()

	for _, cl := range targets {
		if err := cl.send(b); err != nil {
			s.logger.Warnw("отправка события в попап не удалась", "error", err)
			s.drop(cl)
		}
	}
}

func (s *Server) eventPayload(ev orchestrator.Event) payload {
	p := payload{
		Type:       ev.Type.String(),
		RequestID:  ev.RequestID,
		Phase:      string(ev.Phase),
		SourceText: ev.SourceText,
		At:         ev.At.Format(time.RFC3339),
	}
	switch ev.Type {
	case orchestrator.EventSucceeded:
		p.Translated = ev.Result.Text
		p.DetectedLang = ev.Result.DetectedLang
		p.TargetLang = ev.Result.TargetLang
		p.AutoCloseMs = s.cfg.AutoClose.Milliseconds()
	case orchestrator.EventFailed:
		p.Reason = string(ev.Reason)
		if ev.Err != nil {
			p.Error = ev.Err.Error()
		}
		p.AutoCloseMs = s.cfg.AutoClose.Milliseconds()
	}
	return p
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту кодом ошибки.
		s.logger.Warnw("апгрейд до WebSocket не удался", "remote", r.RemoteAddr, "error", err)
		return
	}

	cl := &client{conn: conn}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	last := s.last
	s.mu.Unlock()
	s.logger.Infow("попап подключился", "remote", r.RemoteAddr)

	// Приветствие с парой языков и подсказкой автозакрытия, затем последнее
	// событие: попап показывает последнее состояние запроса, не накапливая.
	s.sendHello(cl)
	if last != nil {
		if err := cl.send(last); err != nil {
			s.drop(cl)
			return
		}
	}

	s.readLoop(cl)

	s.drop(cl)
	s.logger.Infow("попап отключился", "remote", r.RemoteAddr)
}

func (s *Server) sendHello(cl *client) {
	src, dst := s.controls.Languages()
	b, err := json.Marshal(payload{
		Type:        "hello",
		SourceLang:  src,
		TargetLang:  dst,
		AutoCloseMs: s.cfg.AutoClose.Milliseconds(),
	})
	if err != nil {
		return
	}
	if err := cl.send(b); err != nil {
		s.logger.Warnw("не удалось отправить приветствие попапу", "error", err)
	}
}

func (s *Server) readLoop(cl *client) {
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("чтение из попапа прервано", "error", err)
			}
			return
		}
		s.handleAction(cl, data)
	}
}

func (s *Server) handleAction(cl *client, data []byte) {
	var a action
	if err := json.Unmarshal(data, &a); err != nil {
		s.sendError(cl, "malformed action")
		return
	}
	switch a.Action {
	case "copy":
		snap, ok := s.controls.LastResult()
		if !ok {
			s.sendError(cl, "nothing to copy")
			return
		}
		if err := s.clip.WriteText(snap.Result.Text); err != nil {
			s.logger.Warnw("не удалось записать перевод в буфер", "error", err)
			s.sendError(cl, "clipboard write failed")
			return
		}
		s.reply(cl, payload{Type: "copied", RequestID: snap.RequestID})
	case "toggle":
		src, dst := s.controls.ToggleLanguages()
		s.logger.Infow("языки переключены из попапа", "source", src, "target", dst)
		// Смена языков касается всех подключённых попапов.
		b, err := json.Marshal(payload{Type: "languages", SourceLang: src, TargetLang: dst})
		if err != nil {
			return
		}
		s.mu.Lock()
		targets := make([]*client, 0, len(s.clients))
		for c := range s.clients {
			targets = append(targets, c)
		}
		s.mu.Unlock()
		for _, c := range targets {
			if err := c.send(b); err != nil {
				s.drop(c)
			}
		}
	case "history":
		s.reply(cl, payload{Type: "history", History: s.hist.Recent(a.N)})
	default:
		s.logger.Warnw("неизвестная команда от попапа", "action", a.Action)
		s.sendError(cl, "unknown action")
	}
}

func (s *Server) reply(cl *client, p payload) {
	b, err := json.Marshal(p)
	if err != nil {
		s.logger.Errorw("не удалось сериализовать ответ попапу", "error", err)
		return
	}
	if err := cl.send(b); err != nil {
		s.drop(cl)
	}
}

func (s *Server) sendError(cl *client, msg string) {
	s.reply(cl, payload{Type: "error", Error: msg})
}

func (s *Server) drop(cl *client) {
	s.mu.Lock()
	delete(s.clients, cl)
	s.mu.Unlock()
	_ = cl.conn.Close()
}
