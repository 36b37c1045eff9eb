// Package relational provides an active-learning orchestration engine for Go.
//
// Given a partially labelled dataset, a trainable model, and a selection
// strategy, the Strategy engine iteratively picks the most informative
// unlabelled observations, has them annotated, retrains, and tracks
// performance over iterations:
//
//   - Pluggable selection via the Selector interface (distance-based,
//     uncertainty-based, random; see the strategies package)
//   - Labelled/unlabelled partition tracking with Roaring bitmaps
//   - Per-iteration performance history with a theoretical full-data benchmark
//   - Labelling provenance (which iteration or oracle labelled each index)
//   - Oracle hit-ratio evaluation against a known top-informative set
//   - Compressed, self-describing experiment checkpoints (zstd/lz4)
//
// # Quick Start
//
//	dm, err := datamanager.New(ds, func(o *datamanager.Options) {
//	    o.TrainIndices = trainIdx
//	    o.ValidationIndices = validIdx
//	    o.TestIndices = testIdx
//	    o.LabelledIndices = seedIdx
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := model.NewKNN()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := relational.New(dm, m, strategies.NewRelativeDistance())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Benchmark ceiling with everything labelled.
//	if _, err := s.TheoreticalPerformance(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Annotate 10 observations per iteration until the pool is empty.
//	if _, err := s.Run(ctx, 10); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(s)
//
// The engine is single-threaded by design: one Strategy instance owns its
// partition, history, and provenance, and collaborator calls are blocking.
package relational
