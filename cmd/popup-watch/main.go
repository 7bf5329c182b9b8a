package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// payload — сообщение попап-моста; поля заполняются в зависимости от типа.
type payload struct {
	Type         string `json:"type"`
	RequestID    int64  `json:"request_id"`
	Phase        string `json:"phase"`
	SourceText   string `json:"source_text"`
	Translated   string `json:"translated"`
	DetectedLang string `json:"detected_lang"`
	SourceLang   string `json:"source_lang"`
	TargetLang   string `json:"target_lang"`
	Reason       string `json:"reason"`
	Error        string `json:"error"`
}

// Отладочный наблюдатель: подключается к попап-мосту и печатает события
// перевода в консоль. Удобен, когда фронтенд попапа ещё не запущен.
func main() {
	addr := flag.String("addr", "127.0.0.1:3210", "адрес попап-моста")
	path := flag.String("path", "/events", "HTTP-путь моста")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := fmt.Sprintf("ws://%s%s", *addr, *path)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "не удалось подключиться к %s: %v\n", u, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Подключено к %s\n", u)

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "соединение закрыто: %v\n", err)
			}
			return
		}
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			fmt.Printf("[RAW] %s\n", data)
			continue
		}
		ts := time.Now().Format("15:04:05.000")
		switch p.Type {
		case "hello":
			fmt.Printf("[HELLO %s] %s -> %s\n", ts, p.SourceLang, p.TargetLang)
		case "working":
			fmt.Printf("[WORKING %s] #%d (%s)\n", ts, p.RequestID, p.Phase)
		case "delayed":
			fmt.Printf("[DELAYED %s] #%d всё ещё переводим (%s)\n", ts, p.RequestID, p.Phase)
		case "succeeded":
			fmt.Printf("[DONE %s] #%d %s -> %s: %s\n", ts, p.RequestID, p.DetectedLang, p.TargetLang, preview(p.Translated, 500))
		case "failed":
			fmt.Printf("[FAIL %s] #%d %s: %s\n", ts, p.RequestID, p.Reason, p.Error)
		case "languages":
			fmt.Printf("[LANGS %s] %s -> %s\n", ts, p.SourceLang, p.TargetLang)
		default:
			fmt.Printf("[%s %s] %s\n", p.Type, ts, data)
		}
	}
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
