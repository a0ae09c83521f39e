package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("sample rejected: %s", "out of order")
	if !called {
		t.Error("Expected custom logger to be called")
	}

	called = false
	SetLogger(nil)
	Logf("should go nowhere")
	if called {
		t.Error("Expected no-op logger after SetLogger(nil)")
	}
}

func TestQuiet(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Quiet()
	Logf("muted")
	if called {
		t.Error("Expected Quiet to mute the logger")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
