package stdlib

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

const grpcConnTypeName = "Grpc.Conn"

// protoRegistry holds every FileDescriptor loaded via grpcLoadProto,
// keyed by file name, mirroring package-level protoRegistry
// (internal/evaluator/builtins_grpc.go) but scoped to a Grpc module value
// instead of a global so two engines in the same process don't share
// proto definitions.
type protoRegistry struct {
	mu    sync.RWMutex
	files map[string]*desc.FileDescriptor
}

func newProtoRegistry() *protoRegistry { return &protoRegistry{files: make(map[string]*desc.FileDescriptor)} }

func (r *protoRegistry) load(path string) error {
	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, err := parser.ParseFiles(path)
	if err != nil {
		return fmt.Errorf("failed to parse proto: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fd := range fds {
		r.files[fd.GetName()] = fd
	}
	return nil
}

func (r *protoRegistry) findMethod(path string) (*desc.MethodDescriptor, error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return nil, fmt.Errorf("invalid method path %q, expected 'package.Service/Method'", path)
	}
	serviceName, methodName := path[:idx], path[idx+1:]

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fd := range r.files {
		if svc := fd.FindService(serviceName); svc != nil {
			if method := svc.FindMethodByName(methodName); method != nil {
				return method, nil
			}
		}
	}
	return nil, fmt.Errorf("method %q not found (did you call grpcLoadProto?)", path)
}

// Grpc returns the "Grpc" module: grpcConnect/grpcLoadProto/grpcInvoke/
// grpcClose build a dynamic (reflection-based) gRPC client on top of
// the jhump/protoreflect + google.golang.org/grpc stack. Server-side
// support (registering a script closure as a gRPC handler) is not
// wired: it needs the VM to re-enter Execute concurrently to dispatch
// inbound calls back into script closures, which the current
// single-threaded Execute doesn't support — see DESIGN.md.
func Grpc() *host.Module {
	reg := newProtoRegistry()
	return host.NewModule("").
		Func1("grpcConnect", func(target vm.Value) (vm.Value, error) {
			addr, err := host.Str(target)
			if err != nil {
				return vm.Value{}, err
			}
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return resultErr(err), nil
			}
			return resultOk(host.NewData(grpcConnTypeName, conn)), nil
		}).
		Func1("grpcClose", func(connV vm.Value) (vm.Value, error) {
			conn, err := host.As[*grpc.ClientConn](connV, grpcConnTypeName)
			if err != nil {
				return vm.Value{}, err
			}
			if err := conn.Close(); err != nil {
				return resultErr(err), nil
			}
			return resultOk(vm.Unit()), nil
		}).
		Func1("grpcLoadProto", func(pathV vm.Value) (vm.Value, error) {
			path, err := host.Str(pathV)
			if err != nil {
				return vm.Value{}, err
			}
			if err := reg.load(path); err != nil {
				return resultErr(err), nil
			}
			return resultOk(vm.Unit()), nil
		}).
		Func3("grpcInvoke", func(connV, methodV, requestV vm.Value) (vm.Value, error) {
			conn, err := host.As[*grpc.ClientConn](connV, grpcConnTypeName)
			if err != nil {
				return vm.Value{}, err
			}
			methodPath, err := host.Str(methodV)
			if err != nil {
				return vm.Value{}, err
			}
			md, err := reg.findMethod(methodPath)
			if err != nil {
				return resultErr(err), nil
			}

			reqMsg := dynamic.NewMessage(md.GetInputType())
			reqFields, err := host.FromValue(requestV)
			if err != nil {
				return vm.Value{}, err
			}
			reqMap, ok := reqFields.(map[string]interface{})
			if !ok {
				return resultErr(fmt.Errorf("invoke expects a Record request, got %s", requestV.Kind)), nil
			}
			if err := populateMessage(reqMsg, reqMap); err != nil {
				return resultErr(fmt.Errorf("failed to build request: %w", err)), nil
			}

			respMsg := dynamic.NewMessage(md.GetOutputType())
			if !strings.HasPrefix(methodPath, "/") {
				methodPath = "/" + methodPath
			}
			if err := conn.Invoke(context.Background(), methodPath, reqMsg, respMsg); err != nil {
				return resultErr(fmt.Errorf("RPC failed: %w", err)), nil
			}

			respFields, err := messageToMap(respMsg)
			if err != nil {
				return vm.Value{}, err
			}
			respVal, err := host.ToValue(respFields)
			if err != nil {
				return vm.Value{}, err
			}
			return resultOk(respVal), nil
		})
}

// populateMessage and messageToMap cover the scalar/string/nested-message
// field kinds from convertToProtoSingleValue/dynamicMessageToObject;
// repeated and enum fields are left to a future pass (see DESIGN.md) —
// the point here is exercising the dynamic-invocation path end to end,
// not reimplementing full proto type matrix.
func populateMessage(msg *dynamic.Message, fields map[string]interface{}) error {
	for name, val := range fields {
		fd := msg.GetMessageDescriptor().FindFieldByName(name)
		if fd == nil {
			continue
		}
		v, err := convertScalar(val, fd)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		if v != nil {
			if err := msg.TrySetField(fd, v); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
	}
	return nil
}

func convertScalar(val interface{}, fd *desc.FieldDescriptor) (interface{}, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		if i, ok := val.(int64); ok {
			return int32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		if i, ok := val.(int64); ok {
			return i, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		if i, ok := val.(int64); ok {
			return uint32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		if i, ok := val.(int64); ok {
			return uint64(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		if b, ok := val.(bool); ok {
			return b, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		if s, ok := val.(string); ok {
			return s, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if s, ok := val.(string); ok {
			return []byte(s), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		nested, ok := val.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected record for nested message field")
		}
		nestedMsg := dynamic.NewMessage(fd.GetMessageType())
		if err := populateMessage(nestedMsg, nested); err != nil {
			return nil, err
		}
		return nestedMsg, nil
	}
	return nil, fmt.Errorf("unsupported field type %v", fd.GetType())
}

func messageToMap(msg *dynamic.Message) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		if !msg.HasField(fd) {
			continue
		}
		v, err := msg.TryGetField(fd)
		if err != nil {
			return nil, err
		}
		if nested, ok := v.(*dynamic.Message); ok {
			nm, err := messageToMap(nested)
			if err != nil {
				return nil, err
			}
			out[fd.GetName()] = nm
			continue
		}
		out[fd.GetName()] = v
	}
	return out, nil
}
