package notify

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	ttsplayer "ClipTranslator/internal/service/tts/player"
)

// SoundNotifier проигрывает короткий звук по завершении перевода.
// Пустой путь означает «без звука»: Play становится no-op.
type SoundNotifier struct {
	logger *zap.SugaredLogger
	path   string
	ply    ttsplayer.Player
}

// NewSoundNotifier создаёт нотификатор. Относительный путь сначала ищется
// рядом с бинарём, затем от текущей рабочей директории.
func NewSoundNotifier(logger *zap.SugaredLogger, path string) *SoundNotifier {
	path = strings.TrimSpace(path)
	if path != "" && !filepath.IsAbs(path) {
		if exe, err := os.Executable(); err == nil {
			cand := filepath.Join(filepath.Dir(exe), path)
			if _, statErr := os.Stat(cand); statErr == nil {
				path = cand
			}
		}
	}
	return &SoundNotifier{
		logger: logger,
		path:   path,
		ply:    ttsplayer.New(),
	}
}

// Enabled сообщает, настроен ли звук.
func (n *SoundNotifier) Enabled() bool { return n.path != "" }

// Play проигрывает звук уведомления. Ошибки логируются и возвращаются,
// чтобы вызывающий мог принять решение (например, проигнорировать).
func (n *SoundNotifier) Play(ctx context.Context) error {
	if n.path == "" {
		return nil
	}
	// Проверяем отмену контекста до начала
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	default:
	}

	f, err := os.Open(n.path)
	if err != nil {
		if n.logger != nil {
			n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", n.path, "error", err)
		}
		return err
	}
	var rc io.ReadCloser = f
	defer rc.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(n.path), "."))
	if ext == "" {
		ext = "mp3" // по умолчанию
	}

	if err := n.ply.Play(ext, rc); err != nil {
		if n.logger != nil {
			n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", n.path, "error", err)
		}
		return err
	}
	return nil
}
