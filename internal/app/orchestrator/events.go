package orchestrator

import (
	"time"

	"ClipTranslator/internal/service/translate"
)

// EventType описывает стадии жизни запроса перевода, публикуемые наружу.
type EventType int

const (
	// EventWorking — запрос принят и отправлен, финала ещё нет.
	EventWorking EventType = iota + 1
	// EventDelayed — дедлайн истёк, перевод продолжается. Не более одного на запрос.
	EventDelayed
	// EventSucceeded — перевод готов.
	EventSucceeded
	// EventFailed — перевод не удался, причина в Reason.
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventWorking:
		return "working"
	case EventDelayed:
		return "delayed"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Phase — что именно сейчас происходит; подсказка для статусной плашки.
// Фиксируется при отправке запроса: внешний вызов для нас непрозрачен.
type Phase string

const (
	PhaseDetecting   Phase = "detecting"
	PhaseTranslating Phase = "translating"
)

// Reason — класс причины неудачи. Транспорт и отказ сервиса различимы,
// чтобы плашка могла показать осмысленный текст.
type Reason string

const (
	ReasonTransport Reason = "transport"
	ReasonService   Reason = "service"
)

// Event — одно событие по запросу RequestID. Потребитель показывает последнее
// полученное событие текущего запроса, не накапливая их.
type Event struct {
	Type       EventType
	RequestID  int64
	Phase      Phase            // для Working и Delayed
	SourceText string           // исходный текст; заполняется в терминальных событиях
	Result     translate.Result // для Succeeded
	Reason     Reason           // для Failed
	Err        error            // для Failed, попадает в лог и CLI
	At         time.Time
}

// Snapshot — последний успешный перевод; отдаётся новым подписчикам моста
// и действию «скопировать перевод».
type Snapshot struct {
	RequestID  int64
	SourceText string
	Result     translate.Result
	At         time.Time
}
