package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Very small DI container using constructor injection.
// Why: centralize wiring without external deps; keep testable via interfaces.
// It supports:
//  - Provide constructor functions
//  - Singleton scope
//  - Resolve by type and Invoke to call functions with deps

type Container struct {
	mu        sync.RWMutex
	prov      map[reflect.Type]provider
	instances map[reflect.Type]reflect.Value
}

type provider struct {
	fn        reflect.Value
	singleton bool
}

func New() *Container {
	return &Container{prov: make(map[reflect.Type]provider), instances: make(map[reflect.Type]reflect.Value)}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Provide registers a constructor function for a type. The constructor may
// have parameters which will be resolved from the container, and may return
// either (T) or (T, error).
func (c *Container) Provide(constructor interface{}, singleton bool) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function")
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	if ft.NumOut() == 2 && ft.Out(1) != errType {
		return fmt.Errorf("container: second return value must be error")
	}
	outType := ft.Out(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.prov[outType]; exists {
		return fmt.Errorf("container: provider already exists for %v", outType)
	}
	c.prov[outType] = provider{fn: v, singleton: singleton}
	return nil
}

// Resolve fills target (a pointer) with an instance of its type.
func (c *Container) Resolve(target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	inst, err := c.instanceOf(v.Elem().Type())
	if err != nil {
		return err
	}
	v.Elem().Set(inst)
	return nil
}

// Invoke calls fn with parameters resolved from the container.
func (c *Container) Invoke(fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: fn must be a function")
	}
	ft := v.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		inst, err := c.instanceOf(ft.In(i))
		if err != nil {
			return err
		}
		args[i] = inst
	}
	out := v.Call(args)
	if len(out) > 0 && ft.Out(len(out)-1) == errType {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return errV.Interface().(error)
		}
	}
	return nil
}

func (c *Container) instanceOf(t reflect.Type) (reflect.Value, error) {
	c.mu.RLock()
	if inst, ok := c.instances[t]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	p, ok := c.prov[t]
	c.mu.RUnlock()
	if !ok {
		return reflect.Value{}, fmt.Errorf("container: no provider for %v", t)
	}

	ft := p.fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		arg, err := c.instanceOf(ft.In(i))
		if err != nil {
			return reflect.Value{}, err
		}
		args[i] = arg
	}

	out := p.fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	inst := out[0]

	if p.singleton {
		c.mu.Lock()
		c.instances[t] = inst
		c.mu.Unlock()
	}
	return inst, nil
}
