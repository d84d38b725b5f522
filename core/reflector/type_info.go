// Package reflector names Go types for message routing. Names are computed
// once per type and cached.
package reflector

import (
	"reflect"
	"sync"
)

// TypeInfo describes a routable type.
type TypeInfo struct {
	// Name is "pkg/path.TypeName" for named types and the type literal,
	// such as "map[string]int", for unnamed ones.
	Name string
	Type reflect.Type
}

var cache sync.Map // reflect.Type -> TypeInfo

// TypeInfoOf returns the TypeInfo of the dynamic type of x. A nil x yields
// the zero TypeInfo.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoFor returns the TypeInfo of T.
func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType returns the TypeInfo of t. Pointers are described by
// their element type, so T and *T route the same way.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if ti, ok := cache.Load(t); ok {
		return ti.(TypeInfo)
	}
	ti, _ := cache.LoadOrStore(t, TypeInfo{Name: typeName(t), Type: t})
	return ti.(TypeInfo)
}

func typeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
