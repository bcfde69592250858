package chainmap

import (
	"strconv"
	"testing"
)

var benchData [128]string

func init() {
	for i := range benchData {
		benchData[i] = strconv.Itoa(i)
	}
}

func BenchmarkMapGet(b *testing.B) {
	b.ReportAllocs()
	m := New[string, int](WithCapacity(len(benchData) * 2))
	for i := range benchData {
		m.Assign(benchData[i], i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.Get(benchData[i])
			i++
			if i >= len(benchData) {
				i = 0
			}
		}
	})
}

func BenchmarkMapAssign(b *testing.B) {
	b.ReportAllocs()
	m := New[string, int]()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = m.Assign(benchData[i], i)
			i++
			if i >= len(benchData) {
				i = 0
			}
		}
	})
}

func BenchmarkMapAddRemove(b *testing.B) {
	b.ReportAllocs()
	m := New[int, int](WithCapacity(1024))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := i & 1023
		_, _ = m.Add(k, k)
		_, _ = m.Remove(k)
	}
}

func BenchmarkMapEntries(b *testing.B) {
	b.ReportAllocs()
	m := New[string, int]()
	for i := range benchData {
		m.Assign(benchData[i], i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Entries()
	}
}
