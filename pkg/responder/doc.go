/*
Package responder defines the boundary between the dispatch worker and the
AI backend that actually produces a response.

What generates the text is deliberately out of scope here: a pluggable
interface lets a real backend be dropped in without touching pkg/dispatch.
Responder is that interface; Echo, Scripted, Hang, and Failing are the
fakes pkg/dispatch, pkg/engine, and pkg/api tests are written against — Echo behaves
like a slow, well-behaved backend, Scripted gives exact control over the
chunk sequence and terminal outcome, Hang exercises the processing
timeout, and Failing exercises the error path.
*/
package responder
