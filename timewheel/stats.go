package timewheel

import "github.com/tinylib/msgp/msgp"

// Stats is a point-in-time view of the wheel.
type Stats struct {
	Now        uint64
	StartEpoch uint64
	Armed      int
	Near       int
	Far        [farLevels]int
	Overflow   int
	Added      uint64 // 累计挂载数
	Fired      uint64 // 累计触发数
	Cascaded   uint64 // 累计级联搬移次数
}

// Stats 在锁内生成快照
func (tw *TimeWheel) Stats() Stats {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return Stats{
		Now:        tw.now,
		StartEpoch: tw.startEpoch,
		Armed:      tw.armed,
		Near:       tw.nearLen,
		Far:        tw.farLen,
		Overflow:   tw.overflow.len,
		Added:      tw.added,
		Fired:      tw.fired,
		Cascaded:   tw.cascaded,
	}
}

// MarshalMsg implements msgp.Marshaler
func (s *Stats) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, s.Msgsize())
	o = msgp.AppendMapHeader(o, 9)
	o = msgp.AppendString(o, "now")
	o = msgp.AppendUint64(o, s.Now)
	o = msgp.AppendString(o, "start_epoch")
	o = msgp.AppendUint64(o, s.StartEpoch)
	o = msgp.AppendString(o, "armed")
	o = msgp.AppendInt(o, s.Armed)
	o = msgp.AppendString(o, "near")
	o = msgp.AppendInt(o, s.Near)
	o = msgp.AppendString(o, "far")
	o = msgp.AppendArrayHeader(o, uint32(len(s.Far)))
	for _, v := range s.Far {
		o = msgp.AppendInt(o, v)
	}
	o = msgp.AppendString(o, "overflow")
	o = msgp.AppendInt(o, s.Overflow)
	o = msgp.AppendString(o, "added")
	o = msgp.AppendUint64(o, s.Added)
	o = msgp.AppendString(o, "fired")
	o = msgp.AppendUint64(o, s.Fired)
	o = msgp.AppendString(o, "cascaded")
	o = msgp.AppendUint64(o, s.Cascaded)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (s *Stats) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for n > 0 {
		n--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "now":
			s.Now, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Now")
				return
			}
		case "start_epoch":
			s.StartEpoch, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "StartEpoch")
				return
			}
		case "armed":
			s.Armed, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Armed")
				return
			}
		case "near":
			s.Near, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Near")
				return
			}
		case "far":
			var sz uint32
			sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Far")
				return
			}
			if sz != uint32(len(s.Far)) {
				err = msgp.ArrayError{Wanted: uint32(len(s.Far)), Got: sz}
				return
			}
			for i := range s.Far {
				s.Far[i], bts, err = msgp.ReadIntBytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Far", i)
					return
				}
			}
		case "overflow":
			s.Overflow, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Overflow")
				return
			}
		case "added":
			s.Added, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Added")
				return
			}
		case "fired":
			s.Fired, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Fired")
				return
			}
		case "cascaded":
			s.Cascaded, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Cascaded")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the serialized size
func (s *Stats) Msgsize() int {
	return msgp.MapHeaderSize +
		msgp.StringPrefixSize + 3 + msgp.Uint64Size +
		msgp.StringPrefixSize + 11 + msgp.Uint64Size +
		msgp.StringPrefixSize + 5 + msgp.IntSize +
		msgp.StringPrefixSize + 4 + msgp.IntSize +
		msgp.StringPrefixSize + 3 + msgp.ArrayHeaderSize + len(s.Far)*msgp.IntSize +
		msgp.StringPrefixSize + 8 + msgp.IntSize +
		msgp.StringPrefixSize + 5 + msgp.Uint64Size +
		msgp.StringPrefixSize + 5 + msgp.Uint64Size +
		msgp.StringPrefixSize + 8 + msgp.Uint64Size
}
