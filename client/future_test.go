package client_test

import (
    "context"
    "time"

    . "github.com/PelionIoT/historiandb/client"
    . "github.com/PelionIoT/historiandb/data"
    . "github.com/PelionIoT/historiandb/errors"

    . "github.com/onsi/ginkgo"
    . "github.com/onsi/gomega"
)

func okEntriesAtHost(request GetDataRequest, count int32) GetDataResult {
    result := GetDataResult{ Results: make([]ResultEntry, len(request.Keys)) }

    for i := range result.Results {
        result.Results[i] = ResultEntry{ Status: StatusOK, Blocks: []Block{ Block{ Count: count } } }
    }

    return result
}

var _ = Describe("Client parallel reads", func() {
    Describe("#FutureGet", func() {
        It("Should finalize with the fast service's copy without waiting for slow or dead services", func() {
            replicaA := NewMockNetworkClient("east")
            replicaB := NewMockNetworkClient("west")
            replicaC := NewMockNetworkClient("north")

            // A answers after a long delay.
            replicaA.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                select {
                case <-time.After(time.Second * 2):
                    return okEntriesAtHost(request, 1), nil
                case <-ctx.Done():
                    return GetDataResult{ }, ctx.Err()
                }
            }

            // B answers immediately with a marker value.
            replicaB.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                return okEntriesAtHost(request, 42), nil
            }

            // C never answers.
            replicaC.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                <-ctx.Done()

                return GetDataResult{ }, ctx.Err()
            }

            client := NewTestClient(newTestConfig(), []NetworkClient{ replicaA, replicaB, replicaC }, nil)

            request := GetDataRequest{ Begin: 0, End: 100, Keys: []Key{
                Key{ Name: "k1", ShardID: 1 },
                Key{ Name: "k2", ShardID: 2 },
            } }

            start := time.Now()
            result, err := client.Get(context.Background(), request, "")
            elapsed := time.Since(start)

            Expect(err).Should(BeNil())
            Expect(result.AllSuccess).Should(BeTrue())
            Expect(result.Results).Should(Equal([][]Block{
                []Block{ Block{ Count: 42 } },
                []Block{ Block{ Count: 42 } },
            }))

            // One full copy plus the grace window is enough, the two
            // second service must not gate the read.
            Expect(elapsed).Should(BeNumerically("<", time.Second))
        })

        It("Should count a permanently missing key toward a full copy", func() {
            replicaA := NewMockNetworkClient("east")
            replicaB := NewMockNetworkClient("west")

            replicaA.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                result := GetDataResult{ Results: make([]ResultEntry, len(request.Keys)) }

                for i, key := range request.Keys {
                    if key.Name == "k1" {
                        result.Results[i] = ResultEntry{ Status: StatusKeyMissing }
                    } else {
                        result.Results[i] = ResultEntry{ Status: StatusOK, Blocks: []Block{ Block{ Count: 1 } } }
                    }
                }

                return result, nil
            }

            replicaB.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                <-ctx.Done()

                return GetDataResult{ }, ctx.Err()
            }

            client := NewTestClient(newTestConfig(), []NetworkClient{ replicaA, replicaB }, nil)

            request := GetDataRequest{ Begin: 0, End: 100, Keys: []Key{
                Key{ Name: "k1", ShardID: 1 },
                Key{ Name: "k2", ShardID: 2 },
            } }

            result, err := client.Get(context.Background(), request, "")

            Expect(err).Should(BeNil())
            Expect(result.AllSuccess).Should(BeTrue())
            Expect(result.Statuses).Should(Equal([]StatusCode{ StatusKeyMissing, StatusOK }))
            Expect(result.Results[0]).Should(BeNil())
        })

        It("Should report an error in strict mode when no service has a full copy", func() {
            replicaA := NewMockNetworkClient("east")
            replicaB := NewMockNetworkClient("west")

            failEverything := func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                result := GetDataResult{ Results: make([]ResultEntry, len(request.Keys)) }

                for i := range result.Results {
                    result.Results[i] = ResultEntry{ Status: StatusRPCFail }
                }

                return result, nil
            }

            replicaA.performGetAtHostCB = failEverything
            replicaB.performGetAtHostCB = failEverything

            config := newTestConfig()
            config.StrictReads = true

            client := NewTestClient(config, []NetworkClient{ replicaA, replicaB }, nil)

            request := GetDataRequest{ Begin: 0, End: 100, Keys: []Key{ Key{ Name: "k1", ShardID: 1 } } }
            result, err := client.Get(context.Background(), request, "")

            Expect(err).Should(Equal(EReadFailed))
            Expect(result.AllSuccess).Should(BeFalse())
        })

        It("Should return partial data without an error outside strict mode", func() {
            replicaA := NewMockNetworkClient("east")

            replicaA.performGetAtHostCB = func(ctx context.Context, host string, request GetDataRequest) (GetDataResult, error) {
                result := GetDataResult{ Results: make([]ResultEntry, len(request.Keys)) }

                for i := range result.Results {
                    result.Results[i] = ResultEntry{ Status: StatusShardInProgress, Blocks: []Block{ Block{ Count: 3 } } }
                }

                return result, nil
            }

            client := NewTestClient(newTestConfig(), []NetworkClient{ replicaA }, nil)

            request := GetDataRequest{ Begin: 0, End: 100, Keys: []Key{ Key{ Name: "k1", ShardID: 1 } } }
            result, err := client.Get(context.Background(), request, "")

            Expect(err).Should(BeNil())
            Expect(result.Results[0]).Should(Equal([]Block{ Block{ Count: 3 } }))
            Expect(result.Statuses[0]).Should(Equal(StatusShardInProgress))
        })
    })
})
