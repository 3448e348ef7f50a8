package command

import "github.com/hamba/avro/v2"

// Per-variant Avro schemas, derived once from the Go struct tags and kept
// as process-wide immutable singletons — there is no teardown and no
// reason to re-derive them per command.
var (
	helloSchema          = mustSchemaOf(Hello{})
	portDeclareSchema    = mustSchemaOf(PortDeclare{})
	portPullSchema       = mustSchemaOf(PortPull{})
	portPushSchema       = mustSchemaOf(PortPush{})
	outletCompletedSchema = mustSchemaOf(OutletCompleted{})
	outletFailedSchema   = mustSchemaOf(outletFailedWire{})
	inletCancelledSchema = mustSchemaOf(InletCancelled{})
)

// outletFailedWire mirrors OutletFailed but embeds Failure by value so the
// derived schema has no pointer indirection to reason about.
type outletFailedWire struct {
	PortID  int32   `avro:"port_id"`
	Failure Failure `avro:"failure"`
}

func mustSchemaOf(v interface{}) avro.Schema {
	s, err := avro.SchemaOf(v)
	if err != nil {
		panic("command: failed to derive avro schema: " + err.Error())
	}
	return s
}

func schemaFor(tag Tag) avro.Schema {
	switch tag {
	case TagHello:
		return helloSchema
	case TagPortDeclare:
		return portDeclareSchema
	case TagPortPull:
		return portPullSchema
	case TagPortPush:
		return portPushSchema
	case TagOutletCompleted:
		return outletCompletedSchema
	case TagOutletFailed:
		return outletFailedSchema
	case TagInletCancelled:
		return inletCancelledSchema
	default:
		return nil
	}
}
