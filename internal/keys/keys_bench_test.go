package keys

import "testing"

func BenchmarkFor(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = For("tasks")
	}
}

func BenchmarkTask(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Task("0b8f3a5e-8a34-4f53-9a8e-2f8f8c3fd0d1")
	}
}
