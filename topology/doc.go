/*
Package topology builds profile hidden Markov model topologies over a
nanopore reference for detecting a base analogue.

One module of six states is built for each window of K bases in the
reference:

	SS  skip-start, silent
	D   delete, silent
	I   insert, uniform emission shared by the whole model
	M1  match, tied to M2
	M2  match, normal emission from the pore model
	SE  skip-end, silent

Modules are chained through their D, I and SE states. When an Analogue is
given, every position whose window will bring the replaced base into the
pore centre forks into a two-module branch emitting analogue current, which
rejoins the canonical path three positions downstream:

	     / [B] - [B] \
	[i] - [i+1] - [i+2] - [i+3]

The graph produced here is handed to a Runtime for compilation. Training a
model with a known analogue position uses the same construction without any
branches (BuildTraining).
*/
package topology
