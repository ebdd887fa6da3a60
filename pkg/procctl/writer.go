package procctl

// Writer is the managed-process side of one slot. The process owns the UP
// byte of its slot; it only touches COMMAND to acknowledge a stop request.
type Writer struct {
	region *Region
	index  int
}

// NewWriter returns the writer for slot index.
func NewWriter(r *Region, index int) (*Writer, error) {
	if _, _, err := r.layout.Slot(index); err != nil {
		return nil, err
	}
	return &Writer{region: r, index: index}, nil
}

// Index returns the slot index.
func (w *Writer) Index() int { return w.index }

// PublishUp marks the process as up. Call it once initialization is done.
func (w *Writer) PublishUp() error {
	return w.setUp(true)
}

// PublishDown marks the process as down. It is best-effort: a killed process
// never gets to call it.
func (w *Writer) PublishDown() error {
	return w.setUp(false)
}

// ClearPending resets the COMMAND byte to no command.
func (w *Writer) ClearPending() error {
	off, err := w.region.layout.commandOffset(w.index)
	if err != nil {
		return err
	}
	if err := w.region.storeByte(off, w.region.layout.EncodeCommand(CommandNone)); err != nil {
		return err
	}
	w.region.inst.record("clear_pending", w.index)
	return nil
}

// PendingCommand reads the slot's COMMAND byte.
func (w *Writer) PendingCommand() (Command, error) {
	return pendingCommand(w.region, w.index)
}

// StopRequested reports whether a stop is pending for this slot.
func (w *Writer) StopRequested() (bool, error) {
	c, err := w.PendingCommand()
	return c == CommandStop, err
}

func (w *Writer) setUp(up bool) error {
	off, err := w.region.layout.upOffset(w.index)
	if err != nil {
		return err
	}
	if err := w.region.storeByte(off, w.region.layout.EncodeUp(up)); err != nil {
		return err
	}
	if up {
		w.region.inst.record("publish_up", w.index)
	} else {
		w.region.inst.record("publish_down", w.index)
	}
	return nil
}

func pendingCommand(r *Region, index int) (Command, error) {
	off, err := r.layout.commandOffset(index)
	if err != nil {
		return CommandNone, err
	}
	b, err := r.loadByte(off)
	if err != nil {
		return CommandNone, err
	}
	return r.layout.DecodeCommand(b), nil
}

func isUp(r *Region, index int) (bool, error) {
	off, err := r.layout.upOffset(index)
	if err != nil {
		return false, err
	}
	b, err := r.loadByte(off)
	if err != nil {
		return false, err
	}
	return r.layout.DecodeUp(b), nil
}
