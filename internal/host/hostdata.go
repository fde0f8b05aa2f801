package host

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

// NewData wraps a host-language object as an opaque HostData Value
// tagged with typeName, stamping it with a UUID identity so two
// wrapped objects of the same Go type can be told apart without
// leaning on Go pointer identity leaking into Inspect() output.
func NewData(typeName string, data interface{}) vm.Value {
	return vm.HostDataVal(&vm.HostData{TypeName: typeName, ID: uuid.New().String(), Data: data})
}

// As downcasts v's wrapped payload to T, checking both the HostData
// kind and its caller-provided type name before the type assertion —
// a mismatch on either axis is a marshalling failure, not a Go panic.
func As[T any](v vm.Value, typeName string) (T, error) {
	var zero T
	if v.Kind != vm.KindHostData {
		return zero, &vm.RuntimeError{Kind: vm.ErrTypeMismatch, Expected: "HostData", Got: v.Kind.String(),
			Message: fmt.Sprintf("expected HostData(%s), got %s", typeName, v.Kind)}
	}
	hd := v.AsHostData()
	if hd.TypeName != typeName {
		return zero, &vm.RuntimeError{Kind: vm.ErrTypeMismatch, Expected: "HostData(" + typeName + ")", Got: "HostData(" + hd.TypeName + ")",
			Message: fmt.Sprintf("expected HostData(%s), got HostData(%s)", typeName, hd.TypeName)}
	}
	t, ok := hd.Data.(T)
	if !ok {
		return zero, &vm.RuntimeError{Kind: vm.ErrTypeMismatch, Expected: typeName, Got: fmt.Sprintf("%T", hd.Data),
			Message: fmt.Sprintf("HostData(%s) does not wrap the expected Go type", typeName)}
	}
	return t, nil
}
