package procctl

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Dump writes one line per slot of r: index, decoded flags and raw bytes.
func Dump(w io.Writer, r *Region) error {
	l := r.Layout()
	for i := 0; i < l.MaxSlots; i++ {
		raw, err := r.ReadSlot(i)
		if err != nil {
			return err
		}
		if err := writeSlotLine(w, l, i, raw); err != nil {
			return err
		}
	}
	return nil
}

// DebugRegionDetail writes the slots of the control region file at path to w
// without mapping it. Slots missing from a short file are reported, not
// guessed.
func DebugRegionDetail(w io.Writer, path string, l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	mem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	if _, err := fmt.Fprintf(w, "path:%s size:%d expected:%d\n", path, len(mem), l.TotalSize()); err != nil {
		return err
	}
	for i := 0; i < l.MaxSlots; i++ {
		off, n, _ := l.Slot(i)
		if off+n > len(mem) {
			_, err := fmt.Fprintf(w, "short file: slots %d-%d incomplete\n", i, l.MaxSlots-1)
			return err
		}
		if err := writeSlotLine(w, l, i, mem[off:off+n]); err != nil {
			return err
		}
	}
	return nil
}

func writeSlotLine(w io.Writer, l Layout, index int, raw []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("slot:")
	_, _ = buf.WriteString(strconv.Itoa(index))
	_, _ = buf.WriteString(" up:")
	_, _ = buf.WriteString(strconv.FormatBool(l.DecodeUp(raw[l.UpOffset])))
	_, _ = buf.WriteString(" command:")
	_, _ = buf.WriteString(l.DecodeCommand(raw[l.CommandOffset]).String())
	_, _ = buf.WriteString(" raw:")
	_, _ = buf.WriteString(hex.EncodeToString(raw))
	_ = buf.WriteByte('\n')
	_, err := w.Write(buf.B)
	return err
}
