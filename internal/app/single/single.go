package single

import (
	"fmt"
	"hash/fnv"
	"net"
)

// Guard держит TCP-порт на loopback: пока порт занят, второй экземпляр
// приложения стартовать не сможет. Порт детерминированно выводится из
// имени, поэтому все экземпляры с одним именем соревнуются за один порт.
type Guard struct {
	name string
	ln   net.Listener
}

// Port выводит порт замка из имени экземпляра.
func Port(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return 40000 + int(h.Sum32()%10000)
}

// Acquire занимает порт замка. Ошибка означает, что экземпляр с таким
// именем уже запущен (или порт занят чем-то посторонним).
func Acquire(name string) (*Guard, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", Port(name))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("экземпляр %q уже запущен (порт %s занят): %w", name, addr, err)
	}
	return &Guard{name: name, ln: ln}, nil
}

// Release отпускает замок. Безопасен на nil.
func (g *Guard) Release() error {
	if g == nil || g.ln == nil {
		return nil
	}
	return g.ln.Close()
}
