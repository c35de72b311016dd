/*
The sync package implements the mirroring engine. It turns filesystem
notifications for the watched tree into operations on the remote store.

Raw notifications go through four stages, all on a single goroutine:
1) The RenameCorrelator pairs the two halves of a move into a single Rename.
   A move whose destination never arrives becomes a Delete once the
   correlation window expires.
2) The filter.Policy drops paths that shouldn't be mirrored.
3) The Executor keeps the fswatch.WatchTree in sync with directory activity.
4) The Executor maps the local path into the remote namespace and calls the
   remote.Client.

The engine doesn't reconcile the remote store with the local tree. Events
that fail or are lost while the remote is unreachable aren't replayed.
*/
package sync
