package kube_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/fleetloop/orchestrator/internal/adapters/outbound/kube"
)

func int32Ptr(v int32) *int32 {
	return &v
}

func deployment(ready int32, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "inference",
			Namespace: "fleet",
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
		},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas: ready,
		},
	}
}

func targets() map[string]kube.Target {
	return map[string]kube.Target{
		"inference": {
			Namespace:   "fleet",
			Deployment:  "inference",
			PodSelector: "app=inference",
		},
	}
}

func TestProbe_ReadyReplica(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset(deployment(1, 1))
	driver := kube.New(slog.Default(), clientset, nil, targets())

	require.NoError(t, driver.Probe(context.Background(), "inference"))
}

func TestProbe_NoReadyReplicas(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset(deployment(0, 1))
	driver := kube.New(slog.Default(), clientset, nil, targets())

	require.Error(t, driver.Probe(context.Background(), "inference"))
}

func TestProbe_DeploymentMissing(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset()
	driver := kube.New(slog.Default(), clientset, nil, targets())

	err := driver.Probe(context.Background(), "inference")
	require.Error(t, err)
	require.ErrorContains(t, err, "deployment not found")
}

func TestProbe_UnknownComponent(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset()
	driver := kube.New(slog.Default(), clientset, nil, targets())

	require.ErrorIs(t, driver.Probe(context.Background(), "ghost"), kube.ErrTargetUnknown)
}

func TestStartStop_Scale(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset(deployment(0, 0))
	driver := kube.New(slog.Default(), clientset, nil, targets())

	require.NoError(t, driver.Start(context.Background(), "inference"))

	updated, err := clientset.AppsV1().Deployments("fleet").Get(
		context.Background(), "inference", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(1), *updated.Spec.Replicas)

	require.NoError(t, driver.Stop(context.Background(), "inference"))

	updated, err = clientset.AppsV1().Deployments("fleet").Get(
		context.Background(), "inference", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(0), *updated.Spec.Replicas)
}

func TestStart_AlreadyScaled(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset(deployment(1, 1))
	driver := kube.New(slog.Default(), clientset, nil, targets())

	require.NoError(t, driver.Start(context.Background(), "inference"))

	unchanged, err := clientset.AppsV1().Deployments("fleet").Get(
		context.Background(), "inference", metav1.GetOptions{})
	require.NoError(t, err)
	require.Equal(t, int32(1), *unchanged.Spec.Replicas)
}

func TestLoadHint_NoMetricsClient(t *testing.T) {
	t.Parallel()

	clientset := k8sfake.NewSimpleClientset()
	driver := kube.New(slog.Default(), clientset, nil, targets())

	load, err := driver.LoadHint(context.Background(), "inference")
	require.NoError(t, err)
	require.Zero(t, load)
}
