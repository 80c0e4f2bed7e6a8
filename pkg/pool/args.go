package pool

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"
)

// Args 以 Borsh 编码 Anchor 指令参数, discriminator 在最前面.
// 写入内存缓冲区不会失败, 所以各方法不返回错误.
type Args struct {
	buf bytes.Buffer
	enc *bin.Encoder
}

func NewArgs(discriminator []byte) *Args {
	a := &Args{}
	a.enc = bin.NewBorshEncoder(&a.buf)
	a.buf.Write(discriminator)
	return a
}

func (a *Args) U8(v uint8) *Args {
	_ = a.enc.WriteUint8(v)
	return a
}

func (a *Args) U16(v uint16) *Args {
	_ = a.enc.WriteUint16(v, binary.LittleEndian)
	return a
}

func (a *Args) U32(v uint32) *Args {
	_ = a.enc.WriteUint32(v, binary.LittleEndian)
	return a
}

func (a *Args) I32(v int32) *Args {
	_ = a.enc.WriteInt32(v, binary.LittleEndian)
	return a
}

func (a *Args) U64(v uint64) *Args {
	_ = a.enc.WriteUint64(v, binary.LittleEndian)
	return a
}

// U128 writes the low word first, as Borsh does for u128.
func (a *Args) U128(v uint128.Uint128) *Args {
	_ = a.enc.WriteUint64(v.Lo, binary.LittleEndian)
	_ = a.enc.WriteUint64(v.Hi, binary.LittleEndian)
	return a
}

func (a *Args) Bool(v bool) *Args {
	_ = a.enc.WriteBool(v)
	return a
}

// OptionBool encodes Option<bool>: 0 for None, 1 followed by the value for Some.
func (a *Args) OptionBool(v *bool) *Args {
	if v == nil {
		return a.U8(0)
	}
	return a.U8(1).Bool(*v)
}

// Len writes a Borsh vector length prefix.
func (a *Args) Len(n int) *Args {
	return a.U32(uint32(n))
}

func (a *Args) Data() []byte {
	return a.buf.Bytes()
}
