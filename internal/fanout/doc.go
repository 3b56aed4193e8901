// Package fanout replicates one byte stream to several sinks. Each chunk is
// written to all sinks concurrently; sinks that accept fewer bytes than
// offered are retried with the remainder until every sink holds the full
// chunk, so all sinks observe identical data. The reported count is the
// minimum any sink has accepted, which keeps the io.Writer contract honest
// when one sink fails mid-chunk.
package fanout
