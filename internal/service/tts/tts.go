package tts

import "context"

// Speaker озвучивает готовый перевод. Метод воспроизводит речь и не
// возвращает контент; lang — язык текста (код перевода, например "ja").
type Speaker interface {
	Speak(ctx context.Context, text, lang string) error
}
