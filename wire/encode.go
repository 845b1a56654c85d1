package wire

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	// Args is the original set of arguments passed to the function from
	// which this MessageBuilder was generated. It is included purely
	// for debugging purposes.
	Args []any

	sender Object
	op     uint16
	data   bytes.Buffer
	fds    []int
	err    error
}

func NewMessage(sender Object, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
	}
}

func (mb *MessageBuilder) Sender() Object {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	mb.err = write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	mb.err = write(&mb.data, v)
}

// WriteObject writes the ID of v, or zero if v is nil.
func (mb *MessageBuilder) WriteObject(v Object) {
	var id uint32
	if !isNil(v) {
		id = v.ID()
	}
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	if mb.err != nil {
		return
	}

	mb.err = write(&mb.data, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v) + 1)
	mb.err = write(&mb.data, length)
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	for i := uint32(0); i < padding(length); i++ {
		mb.data.WriteByte(0)
	}
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v))
	mb.err = write(&mb.data, length)
	mb.data.Write(v)
	for i := uint32(0); i < padding(length); i++ {
		mb.data.WriteByte(0)
	}
}

// WriteFile duplicates the file descriptor of v to be sent with the
// message. The caller retains ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}

	fd, err := unix.FcntlInt(v.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		mb.err = fmt.Errorf("dup fd: %w", err)
		return
	}

	mb.fds = append(mb.fds, fd)
}

// Bytes returns the encoded message, including its header.
func (mb *MessageBuilder) Bytes() ([]byte, error) {
	if mb.err != nil {
		return nil, mb.err
	}

	length := HeaderSize + mb.data.Len()
	if length > 0xFFFF {
		return nil, MessageSizeError{Size: length}
	}

	msg := bytes.NewBuffer(make([]byte, 0, length))
	write(msg, mb.sender.ID())
	write(msg, (uint32(length)<<16)|uint32(mb.op))
	msg.Write(mb.data.Bytes())
	return msg.Bytes(), nil
}

// Build builds the message and sends it to c. The MessageBuilder
// should not be used again after this method is called.
func (mb *MessageBuilder) Build(c *Conn) error {
	defer mb.Close()

	data, err := mb.Bytes()
	if err != nil {
		return err
	}

	return c.WriteMessage(data, mb.fds)
}

// Close releases the duplicated file descriptors held by the message.
// It is called automatically by Build.
func (mb *MessageBuilder) Close() error {
	errs := make([]error, 0, len(mb.fds))
	for _, fd := range mb.fds {
		errs = append(errs, unix.Close(fd))
	}
	mb.fds = nil
	return errors.Join(errs...)
}

func (mb *MessageBuilder) String() string {
	args := make([]string, 0, len(mb.Args))
	for _, arg := range mb.Args {
		switch arg := arg.(type) {
		case string:
			args = append(args, strconv.Quote(arg))
		case *os.File:
			args = append(args, "fd "+strconv.FormatUint(uint64(arg.Fd()), 10))
		default:
			args = append(args, fmt.Sprint(arg))
		}
	}

	return fmt.Sprintf("%v.%v(%v)", mb.sender, mb.Method, strings.Join(args, ", "))
}

func isNil(v any) bool {
	return (v == nil) || ((*[2]uintptr)(unsafe.Pointer(&v))[1] == 0)
}

// NewRequest builds a message for a request, encoding each argument
// according to its type: int32, uint32, Fixed, string, []byte,
// *os.File, NewID and Object are supported. A nil argument is written
// as a null object.
func NewRequest(sender Object, op uint16, method string, args ...any) *MessageBuilder {
	mb := NewMessage(sender, op)
	mb.Method = method
	mb.Args = args

	for _, arg := range args {
		switch arg := arg.(type) {
		case int32:
			mb.WriteInt(arg)
		case uint32:
			mb.WriteUint(arg)
		case Fixed:
			mb.WriteFixed(arg)
		case string:
			mb.WriteString(arg)
		case []byte:
			mb.WriteArray(arg)
		case *os.File:
			mb.WriteFile(arg)
		case NewID:
			mb.WriteNewID(arg)
		case Object:
			mb.WriteObject(arg)
		case nil:
			mb.WriteUint(0)
		default:
			if mb.err == nil {
				mb.err = fmt.Errorf("%v.%v: unsupported argument type %T", sender, method, arg)
			}
		}
	}

	return mb
}
