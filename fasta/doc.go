/*
Package fasta provides routines for reading reference sequences from FASTA
files.

The format used is the one described by NCBI:
http://blast.ncbi.nlm.nih.gov/blastcgihelp.shtml

By default, sequences are checked to make sure they contain only valid
characters: a-z, A-Z, * and -. All lowercases letters are translated to their
upper case equivalent. References destined for a nanopore model should be read
with ReadReference, which only admits nucleotides and the analogue symbol.
*/
package fasta
