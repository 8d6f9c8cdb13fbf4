// Package kube drives components that run as Kubernetes Deployments. A
// component is healthy when its Deployment has at least one ready replica;
// start and stop scale the Deployment to one and zero replicas.
package kube

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

const millicoresPerCore = 1000

// Target identifies the Deployment backing one component.
type Target struct {
	Namespace   string
	Deployment  string
	PodSelector string
}

// Driver manages Deployment-backed components.
type Driver struct {
	logger           *slog.Logger
	clientset        kubernetes.Interface
	metricsClientset metricsv.Interface
	targets          map[string]Target
}

// New creates a kube driver over the given targets, keyed by component name.
// metricsClientset may be nil when the cluster has no metrics server; load
// hints are then unavailable.
func New(
	logger *slog.Logger,
	clientset kubernetes.Interface,
	metricsClientset metricsv.Interface,
	targets map[string]Target,
) *Driver {
	return &Driver{
		logger:           logger,
		clientset:        clientset,
		metricsClientset: metricsClientset,
		targets:          targets,
	}
}

// Probe reports the component healthy when its Deployment has a ready replica.
func (d *Driver) Probe(ctx context.Context, name string) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}

	deployment, err := d.clientset.AppsV1().Deployments(target.Namespace).Get(
		ctx,
		target.Deployment,
		metav1.GetOptions{},
	)
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, mapError(err))
	}

	if deployment.Status.ReadyReplicas < 1 {
		return fmt.Errorf("probe %s: no ready replicas", name)
	}

	return nil
}

// Start scales the Deployment to one replica. Already-scaled Deployments
// are left alone.
func (d *Driver) Start(ctx context.Context, name string) error {
	return d.scale(ctx, name, 1)
}

// Stop scales the Deployment to zero replicas.
func (d *Driver) Stop(ctx context.Context, name string) error {
	return d.scale(ctx, name, 0)
}

func (d *Driver) scale(ctx context.Context, name string, replicas int32) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}

	deployments := d.clientset.AppsV1().Deployments(target.Namespace)

	deployment, err := deployments.Get(ctx, target.Deployment, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("scale %s: %w", name, mapError(err))
	}

	if deployment.Spec.Replicas != nil && *deployment.Spec.Replicas == replicas {
		d.logger.DebugContext(ctx, "deployment already at desired scale",
			"component", name,
			"replicas", replicas,
		)

		return nil
	}

	deployment.Spec.Replicas = &replicas

	if _, err := deployments.Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("scale %s: %w", name, mapError(err))
	}

	d.logger.InfoContext(ctx, "deployment scaled",
		"component", name,
		"deployment", target.Deployment,
		"namespace", target.Namespace,
		"replicas", replicas,
	)

	return nil
}

// LoadHint sums the CPU usage of the component's pods, in cores.
func (d *Driver) LoadHint(ctx context.Context, name string) (float64, error) {
	if d.metricsClientset == nil {
		return 0, nil
	}

	target, err := d.target(name)
	if err != nil {
		return 0, err
	}

	selector := target.PodSelector
	if selector == "" {
		return 0, nil
	}

	podMetricsList, err := d.metricsClientset.MetricsV1beta1().PodMetricses(target.Namespace).List(
		ctx,
		metav1.ListOptions{LabelSelector: selector},
	)
	if err != nil {
		return 0, fmt.Errorf("load hint %s: %w", name, mapError(err))
	}

	var milliCPU int64

	for i := range podMetricsList.Items {
		for j := range podMetricsList.Items[i].Containers {
			usage := podMetricsList.Items[i].Containers[j].Usage.Cpu()
			if usage != nil {
				milliCPU += usage.MilliValue()
			}
		}
	}

	return float64(milliCPU) / millicoresPerCore, nil
}

func (d *Driver) target(name string) (Target, error) {
	target, exists := d.targets[name]
	if !exists {
		return Target{}, fmt.Errorf("component %s: %w", name, ErrTargetUnknown)
	}

	return target, nil
}

func mapError(err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return errDeploymentNotFound
	case apierrors.IsTooManyRequests(err):
		return errTooManyRequests
	}

	return err
}
