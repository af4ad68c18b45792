// Package render hands generated programs to the Manim command line tool.
//
// A Renderer writes the program into a scratch script under its work
// directory, runs `manim render` against it and returns the first video
// the tool leaves under media/videos. Output lines are forwarded to a Sink
// as they arrive; LogSink writes them to the context logger and SocketSink
// streams them to a socket.io progress server.
//
// Failures are *RenderError values. When the tool's error output names a
// variable of the program, the error carries the node that variable was
// bound for.
package render
