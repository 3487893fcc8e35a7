/*
Package log provides structured logging for strata using zerolog.

Init configures the global Logger once at startup (level, JSON vs console
output, destination writer). Most call sites use WithComponent to get a
logger tagged with the subsystem name ("archiver", "restorer", "gc", ...);
WithRepository, WithSnapshot, and WithPack attach the corresponding id for
call sites that need it in every subsequent log line without repeating
the field by hand.
*/
package log
