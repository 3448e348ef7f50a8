package handshake

import "github.com/whitaker-io/flowgraph/protocol/command"

// RunChild performs the child side of the handshake: emit a Hello
// declaring len(outletSchemas)/len(inletSchemas), then one PortDeclare
// per outlet schema (in outlet order), then one PortDeclare per inlet
// schema (in inlet order).
func RunChild(enc *command.Encoder, outletSchemas, inletSchemas []string) error {
	hello := &command.Command{Hello: &command.Hello{
		Version:      ProtocolVersion,
		InletsCount:  int32(len(inletSchemas)),
		OutletsCount: int32(len(outletSchemas)),
	}}
	if err := enc.Encode(hello); err != nil {
		return err
	}

	for _, s := range outletSchemas {
		if err := enc.Encode(&command.Command{PortDeclare: &command.PortDeclare{Schema: s}}); err != nil {
			return err
		}
	}

	for _, s := range inletSchemas {
		if err := enc.Encode(&command.Command{PortDeclare: &command.PortDeclare{Schema: s}}); err != nil {
			return err
		}
	}

	return nil
}
