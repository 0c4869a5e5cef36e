// Package store provides the durable timing store.
//
// The store persists each scene's time-event mapping under the key
// scene-{project}-{sceneName}. It is read once when a scene is
// constructed and written when the scene's timing is frozen
// (MarkCached), which is what lets user-adjusted event timings survive
// routine reloads and editor restarts.
//
// Storage is SQLite (WAL mode) with one JSON document per scene. The
// document format is owned by the timing package's Event type.
package store
