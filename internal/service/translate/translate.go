package translate

import (
	"context"
	"errors"
	"fmt"
)

// Request — один перевод: что переводим и в какую сторону.
// SourceLang "auto" включает автоопределение на стороне сервиса.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Result — готовый перевод. DetectedLang заполняется сервисом, когда
// исходный язык определялся автоматически; иначе совпадает с SourceLang.
type Result struct {
	Text         string
	DetectedLang string
	TargetLang   string
}

// Translator — провайдер перевода. Реализации живут в подпакетах
// google, cloud и openai.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// APIError — сервис ответил, но ответ не 2xx. Тело обрезано до разумного
// размера и попадает в лог, а не пользователю.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translate: service returned status %d", e.StatusCode)
}

// ErrEmptyResult — сервис ответил успешно, но перевода в ответе нет.
var ErrEmptyResult = errors.New("translate: empty result")

// ErrBadResponse — ответ 2xx, но разобрать его не удалось.
var ErrBadResponse = errors.New("translate: malformed service response")

// ServiceFault отличает отказ самого сервиса (не-2xx, пустой или кривой
// ответ) от транспортного: таймаут, обрыв соединения, DNS.
func ServiceFault(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrEmptyResult) || errors.Is(err, ErrBadResponse)
}

const maxErrBody = 4096

// TruncateBody обрезает тело ошибочного ответа для APIError.Body.
func TruncateBody(b []byte) string {
	if len(b) > maxErrBody {
		return string(b[:maxErrBody]) + "..."
	}
	return string(b)
}
