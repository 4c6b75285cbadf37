// Package glm fits generalized linear models for count data.  It
// supports the Poisson, quasi-Poisson, and negative binomial families
// with log and identity link functions, fitting either by iteratively
// reweighted least squares or by gradient optimization.
package glm
