// Package nb estimates negative binomial regression models for
// feature-level count data, as used in single-cell normalization.
// The mean model is a Poisson GLM; the dispersion parameter theta is
// then estimated by maximum likelihood using Newton-Raphson iteration
// on the profile log-likelihood.
package nb
