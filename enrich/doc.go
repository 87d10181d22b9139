// Package enrich runs articles from the queue through language-model enrichment.
//
// A Worker takes a snapshot of the queue and, for every job, claims it, runs each
// configured Stage against the oracle, and routes the job to completed or failed:
//
//	QUEUED -> CLAIMED -> ENRICHING -> DONE | ERROR
//
// Jobs without title, description or content fail with reason "no content" and
// never reach the oracle. A stage whose oracle call fails after all retries only
// loses its own field; the job fails only when no stage succeeded.
//
// Jobs run on an ants pool. With the default size of 1 they are processed one at a
// time in queue order:
//
//	worker, err := enrich.NewWorker(store, oracle,
//	    enrich.WithStages(enrich.RewordStages()...),
//	    enrich.WithPoolSize(4),
//	)
//	if err != nil {
//	    return err
//	}
//	defer worker.Release()
//	report, err := worker.Run(ctx)
package enrich
