package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"featmark/internal/lint"
	"featmark/internal/logging"
	"featmark/internal/registry"
)

func BenchmarkCheckPipeline_Enqueue(b *testing.B) {
	reg := registry.NewDocumentRegistry()
	p := NewCheckPipeline(4, reg, logging.NewTestLogger())
	defer p.Stop()

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		p.Check("FEATURES.md")
	}
}

func BenchmarkCheckPipeline_CachedCheck(b *testing.B) {
	path := writeGuide(b, "bench_pipeline_guide.md", pipelineGuide)

	reg := registry.NewDocumentRegistry()
	p := NewCheckPipeline(4, reg, logging.NewTestLogger())
	defer p.Stop()

	done := make(chan struct{}, 256)
	p.AddCallback(func(result CheckResult) {
		done <- struct{}{}
	})
	p.Start(context.Background())

	// Prime the cache so the loop measures the cache hit round trip
	p.Check(path)
	<-done

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		p.Check(path)
		<-done
	}
}

func BenchmarkGenerateContentHash(b *testing.B) {
	path := writeGuide(b, "bench_pipeline_hash_guide.md", pipelineGuide)

	reg := registry.NewDocumentRegistry()
	p := NewCheckPipeline(1, reg, logging.NewTestLogger())
	defer p.Stop()

	// First call computes the hash, the rest hit the metadata fast path
	p.generateContentHash(path)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		p.generateContentHash(path)
	}
}

func BenchmarkResultCache_Operations(b *testing.B) {
	cache := NewResultCache(10*1024*1024, time.Hour)
	value := make([]byte, 1024)

	for i := 0; i < 100; i++ {
		cache.Set(fmt.Sprintf("key%d", i), value)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key%d", i%100)
		cache.Get(key)
		if i%10 == 0 {
			cache.Set(key, value)
		}
	}
}

func BenchmarkResultCache_Eviction(b *testing.B) {
	// Ten entries fit, every set past that evicts
	cache := NewResultCache(10*1024, time.Hour)
	value := make([]byte, 1024)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Set(fmt.Sprintf("key%d", i), value)
	}
}

func BenchmarkResultCache_ConcurrentAccess(b *testing.B) {
	cache := NewResultCache(10*1024*1024, time.Hour)
	value := make([]byte, 512)

	for i := 0; i < 100; i++ {
		cache.Set(fmt.Sprintf("key%d", i), value)
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			cache.Get(fmt.Sprintf("key%d", i%100))
			i++
		}
	})
}

func BenchmarkCheckMetrics_RecordCheck(b *testing.B) {
	metrics := NewCheckMetrics()
	result := CheckResult{Path: "FEATURES.md", Duration: 5 * time.Millisecond}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		metrics.RecordCheck(result)
	}
}

func BenchmarkReportCodec(b *testing.B) {
	report := &lint.Report{
		ID:       "bench-report",
		File:     "FEATURES.md",
		Title:    "Framework Features",
		Sections: 26,
		Issues: []lint.Issue{
			{Rule: "heading-sequence", Severity: lint.SeverityError, File: "FEATURES.md", Line: 12, Message: "expected section 3, found 4"},
			{Rule: "language-hint", Severity: lint.SeverityError, File: "FEATURES.md", Line: 80, Message: "unknown language hint \"rust\""},
			{Rule: "snippet-count", Severity: lint.SeverityWarning, File: "FEATURES.md", Line: 120, Message: "section has no code snippet"},
		},
		Summary:   lint.Summary{TotalRules: 9, PassedRules: 6, FailedRules: 3},
		Duration:  12 * time.Millisecond,
		Timestamp: time.Now().UTC(),
	}

	encoded, err := encodeReport(report)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("encode", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			if _, err := encodeReport(report); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("decode", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			if _, err := decodeReport(encoded); err != nil {
				b.Fatal(err)
			}
		}
	})
}
