package wl

import "deedles.dev/wlbg/wire"

const (
	OutputInterface = "wl_output"
	OutputVersion   = 4
)

type OutputMode uint32

const (
	OutputModeCurrent   OutputMode = 0x1
	OutputModePreferred OutputMode = 0x2
)

type OutputTransform int32

const (
	OutputTransformNormal OutputTransform = iota
	OutputTransform90
	OutputTransform180
	OutputTransform270
	OutputTransformFlipped
	OutputTransformFlipped90
	OutputTransformFlipped180
	OutputTransformFlipped270
)

type OutputListener interface {
	Geometry(x, y, physicalWidth, physicalHeight, subpixel int32, make, model string, transform OutputTransform)
	Mode(flags OutputMode, width, height, refresh int32)
	Done()
	Scale(factor int32)
	Name(name string)
	Description(description string)
}

type Output struct {
	Proxy
	Listener OutputListener
}

// BindOutput binds the wl_output global with the given name at the
// lower of version and OutputVersion.
func BindOutput(client *Client, registry *Registry, name, version uint32) *Output {
	output := Output{Proxy: NewProxy(client, OutputInterface, min(version, OutputVersion))}
	registry.Bind(name, &output, OutputInterface, output.version)
	return &output
}

func (output *Output) Delete() {
	output.Listener = nil
}

func (output *Output) MethodName(op uint16) string {
	switch op {
	case 0:
		return "geometry"
	case 1:
		return "mode"
	case 2:
		return "done"
	case 3:
		return "scale"
	case 4:
		return "name"
	case 5:
		return "description"
	}
	return "unknown"
}

func (output *Output) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		x := msg.ReadInt()
		y := msg.ReadInt()
		pw := msg.ReadInt()
		ph := msg.ReadInt()
		subpixel := msg.ReadInt()
		make := msg.ReadString()
		model := msg.ReadString()
		transform := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if output.Listener != nil {
			output.Listener.Geometry(x, y, pw, ph, subpixel, make, model, OutputTransform(transform))
		}
		return nil

	case 1:
		flags := msg.ReadUint()
		width := msg.ReadInt()
		height := msg.ReadInt()
		refresh := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if output.Listener != nil {
			output.Listener.Mode(OutputMode(flags), width, height, refresh)
		}
		return nil

	case 2:
		if output.Listener != nil {
			output.Listener.Done()
		}
		return nil

	case 3:
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if output.Listener != nil {
			output.Listener.Scale(factor)
		}
		return nil

	case 4, 5:
		str := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if output.Listener == nil {
			return nil
		}
		if msg.Op() == 4 {
			output.Listener.Name(str)
			return nil
		}
		output.Listener.Description(str)
		return nil
	}

	return wire.UnknownOpError{Interface: output.inter, Type: "event", Op: msg.Op()}
}

// Release destroys the output object. Outputs older than version 3
// have no destructor, so they are only forgotten locally.
func (output *Output) Release() {
	if output.version >= 3 {
		output.client.Enqueue(wire.NewRequest(output, 0, "release"))
	}
	output.client.Remove(output)
}
