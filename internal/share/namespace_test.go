package share

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dop251/goja"
)

func TestBuildNamespaceEmpty(t *testing.T) {
	for _, bindings := range []map[string]interface{}{nil, {}} {
		ns, err := BuildNamespace(bindings, 0)
		if err != nil {
			t.Fatalf("BuildNamespace(%v): %v", bindings, err)
		}
		if ns != nil {
			t.Errorf("BuildNamespace(%v) = %v, want nil", bindings, ns)
		}
		if ns.Len() != 0 {
			t.Errorf("nil namespace Len = %d", ns.Len())
		}
		// Nil namespaces are inert everywhere they are used.
		if err := ns.Apply(goja.New()); err != nil {
			t.Errorf("nil namespace Apply: %v", err)
		}
		ns.Release()
	}
}

func TestBuildNamespaceOrder(t *testing.T) {
	ns, err := BuildNamespace(map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ns.Release()

	want := []string{"alpha", "mid", "zeta"}
	if got := ns.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestBuildNamespaceAllOrNothing(t *testing.T) {
	ns, err := BuildNamespace(map[string]interface{}{
		"good":  "fine",
		"bytes": []byte{1},
		"bad":   map[string]int{"x": 1},
		"more":  42,
	}, 0)
	if !errors.Is(err, ErrNotShareable) {
		t.Fatalf("got %v, want ErrNotShareable", err)
	}
	if ns != nil {
		t.Fatal("namespace returned despite capture failure")
	}
}

func TestCaptureBindingsReleasesOnFailure(t *testing.T) {
	bindings := map[string]interface{}{
		"alpha": "fine",
		"bytes": []byte{1},
		"omega": make(chan int), // sorts after the shareable names
	}
	names := []string{"alpha", "bytes", "omega"}

	items, err := captureBindings(names, bindings, 0)
	if !errors.Is(err, ErrNotShareable) {
		t.Fatalf("got %v, want ErrNotShareable", err)
	}
	if len(items) != 2 {
		t.Fatalf("captured %d capsules before the failure, want 2", len(items))
	}
	for _, item := range items {
		if !item.capsule.Released() {
			t.Errorf("capsule %q leaked past the failed build", item.name)
		}
	}
}

func TestApplyBindsGlobals(t *testing.T) {
	ns, err := BuildNamespace(map[string]interface{}{
		"greeting": "hello",
		"count":    int64(3),
		"flag":     true,
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ns.Release()

	vm := goja.New()
	if err := ns.Apply(vm); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res, err := vm.RunString(`greeting === "hello" && count === 3 && flag === true`)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ToBoolean() {
		t.Error("globals not bound as expected")
	}
}

func TestApplyAfterReleaseFails(t *testing.T) {
	ns, err := BuildNamespace(map[string]interface{}{"x": 1, "y": 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	ns.Release()

	if err := ns.Apply(goja.New()); !errors.Is(err, ErrApplyFailed) {
		t.Errorf("Apply after release: got %v, want ErrApplyFailed", err)
	}
}

func TestReleaseAllCapsules(t *testing.T) {
	ns, err := BuildNamespace(map[string]interface{}{"a": "x", "b": "y"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	ns.Release()
	for _, item := range ns.items {
		if !item.capsule.Released() {
			t.Errorf("capsule %q not released", item.name)
		}
	}
	ns.Release() // idempotent
}
