package main

import (
	"bufio"
	"context"
	"io"

	"github.com/opd-ai/go-orbitwar/pkg/agent"
)

// decodeKeys maps raw terminal bytes to agent keys. Arrow keys arrive as
// ESC [ A..D. quit is set by q or Ctrl-C.
func decodeKeys(buf []byte) (keys []agent.Key, quit bool) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				keys = append(keys, agent.KeyThrust)
			case 'B':
				keys = append(keys, agent.KeyRetro)
			case 'C':
				keys = append(keys, agent.KeyRight)
			case 'D':
				keys = append(keys, agent.KeyLeft)
			}
			i += 2
			continue
		}

		switch b {
		case 'q', 'Q', '\x03':
			quit = true
		case 'a', 'A', 'j', 'J':
			keys = append(keys, agent.KeyLeft)
		case 'd', 'D', 'l', 'L':
			keys = append(keys, agent.KeyRight)
		case 'w', 'W', 'i', 'I':
			keys = append(keys, agent.KeyThrust)
		case 's', 'S', 'k', 'K':
			keys = append(keys, agent.KeyRetro)
		case ' ':
			keys = append(keys, agent.KeyFire)
		case 'e', 'E', '\t':
			keys = append(keys, agent.KeyWeapon)
		}
	}
	return keys, quit
}

// tapper receives decoded key presses. *agent.Human implements it.
type tapper interface {
	Tap(k agent.Key)
}

// readKeys feeds key presses from r to h until r fails or the user quits,
// then calls stop. A raw terminal only reports key-down, so every press is a
// one-cycle tap; auto-repeat keeps a held key going.
func readKeys(ctx context.Context, r io.Reader, h tapper, stop context.CancelFunc) {
	defer stop()
	br := bufio.NewReader(r)
	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := br.Read(buf)
		keys, quit := decodeKeys(buf[:n])
		for _, k := range keys {
			h.Tap(k)
		}
		if quit || err != nil {
			return
		}
	}
}
