package hotkey

import "time"

// Виртуальные коды клавиш, участвующие в классификации.
const (
	vkKana        = 0x15 // катакана/хирагана
	vkKanji       = 0x19 // полноширинный/полуширинный режим
	vkConvert     = 0x1C // конверсия IME
	vkNonConvert  = 0x1D // без конверсии
	vkC           = 0x43
	vkDbeSbcsChar = 0xF3
	vkDbeDbcsChar = 0xF4
)

// KeyEvent — сырое событие клавиатуры от платформенного источника.
// Модификаторы снимаются источником в момент события.
type KeyEvent struct {
	VK    uint32
	Down  bool
	Ctrl  bool
	Alt   bool
	Shift bool
	At    time.Time
}

// Classification — решение фильтра по одному событию.
type Classification int

const (
	// ClassIgnore: служебная клавиша из списка исключений, в детектор не попадает.
	ClassIgnore Classification = iota + 1
	// ClassPass: обычное событие, комбинацией копирования не является.
	ClassPass
	// ClassCopy: нажатие Ctrl+C — сигнал копирования для детектора.
	ClassCopy
)

// Filter классифицирует сырые события клавиатуры. Служебные клавиши японской
// раскладки порождают дополнительные системные события, способные испортить
// распознавание комбинации, поэтому исключаются целиком, независимо от
// модификаторов. Фильтр только наблюдает: возврат события системе — забота
// слушателя, классификация на него не влияет.
type Filter struct {
	excluded map[uint32]struct{}
	copyKey  uint32
}

func NewFilter() *Filter {
	return &Filter{
		excluded: map[uint32]struct{}{
			vkKanji:       {},
			vkConvert:     {},
			vkNonConvert:  {},
			vkKana:        {},
			vkDbeSbcsChar: {},
			vkDbeDbcsChar: {},
		},
		copyKey: vkC,
	}
}

func (f *Filter) Classify(ev KeyEvent) Classification {
	if _, ok := f.excluded[ev.VK]; ok {
		return ClassIgnore
	}
	if ev.Down && ev.Ctrl && ev.VK == f.copyKey {
		return ClassCopy
	}
	return ClassPass
}
