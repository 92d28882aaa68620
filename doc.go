// Package docindex ingests user documents into searchable fragments.
//
// An Index stores documents, queues their ingestion on a durable job queue,
// and answers similarity queries scoped to the document owner. Ingestion runs
// out of band: CreateDocument returns a pending document, and Drain or
// RunWorker move it to ready or failed.
//
//	idx, err := docindex.Open(config.NewConfig(config.WithDataDir("./idx")))
//	doc, err := idx.CreateDocument(ctx, docindex.NewDocument{Owner: "u1", Text: "hello"})
//	_, err = idx.Drain(ctx)
//	results, err := idx.Search(ctx, "u1", "hello", 5)
package docindex
